package types

type Side string

type Product string

type Segment string

type InstrumentKind string

type AccountKind string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

const (
	// ProductCNC is delivery-style: fully funded, no leverage, no forced closure.
	ProductCNC Product = "cnc"
	// ProductMIS is intraday: leveraged, squared off before market close.
	ProductMIS Product = "mis"
)

const (
	SegmentCash        Segment = "cash"
	SegmentDerivatives Segment = "derivatives"
)

const (
	InstrumentEquity InstrumentKind = "equity"
	InstrumentIndex  InstrumentKind = "index"
	InstrumentFuture InstrumentKind = "future"
	InstrumentCall   InstrumentKind = "call"
	InstrumentPut    InstrumentKind = "put"
)

const (
	AccountMain  AccountKind = "main"
	AccountEvent AccountKind = "event"
)

func (s Side) Valid() bool {
	return s == SideBuy || s == SideSell
}

func (p Product) Valid() bool {
	return p == ProductCNC || p == ProductMIS
}
