package can

// Kind identifies the field result of a Field.
type Kind int

const (
	KindStandardIdentifier Kind = iota
	KindExtendedIdentifier
	KindControl
	KindData
	KindCRC
	KindAck
	KindEOF
	KindIntermission
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindStandardIdentifier:
		return "Std Idf"
	case KindExtendedIdentifier:
		return "Ext Idf"
	case KindControl:
		return "Ctrl"
	case KindData:
		return "Data"
	case KindCRC:
		return "CRC"
	case KindAck:
		return "ACK"
	case KindEOF:
		return "EOF"
	case KindIntermission:
		return "IFS"
	case KindError:
		return "Error"
	default:
		return "?"
	}
}

// Span holds the inclusive start and end sample numbers of a field.
type Span struct {
	Start uint64 `json:"start"`
	End   uint64 `json:"end"`
}

// Bounds returns the span itself.
func (s Span) Bounds() Span { return s }

// Field is one decoded field of a CAN frame. It is emitted once, when the
// field is complete.
type Field interface {
	Kind() Kind
	Bounds() Span
}

// StandardIdentifier is the 11 bit identifier of a base format frame.
type StandardIdentifier struct {
	Span
	ID     uint16 `json:"id"`
	IsData bool   `json:"isData"`
}

// ExtendedIdentifier is the 29 bit identifier of an extended format frame.
type ExtendedIdentifier struct {
	Span
	ID     uint32 `json:"id"`
	IsData bool   `json:"isData"`
}

// Control is the control field. DeclaredLength is the raw data length code
// (0..15); ReservedError reports a recessive R0 bit.
type Control struct {
	Span
	DeclaredLength uint8 `json:"declaredLength"`
	ReservedError  bool  `json:"reservedError,omitempty"`
}

// DataByte is one byte of the data field.
type DataByte struct {
	Span
	Value uint8 `json:"value"`
	Index uint8 `json:"index"`
}

// Crc is the CRC sequence. Computed is the CRC over the protected bits,
// Residue is the accumulator after the received sequence, zero when it matches.
type Crc struct {
	Span
	Transmitted uint16 `json:"transmitted"`
	Computed    uint16 `json:"computed"`
	Residue     uint16 `json:"residue"`
}

// Valid reports a matching CRC.
func (c Crc) Valid() bool { return c.Residue == 0 }

// Ack is the acknowledge field.
type Ack struct {
	Span
	Nacked         bool `json:"nacked"`
	DelimiterError bool `json:"delimiterError,omitempty"`
}

// Eof is the end of frame field.
type Eof struct {
	Span
}

// Intermission closes a frame. DurationSamples is the number of samples from
// the start of frame to the last intermission bit.
type Intermission struct {
	Span
	DurationSamples uint64 `json:"durationSamples"`
	StuffBitCount   uint64 `json:"stuffBitCount"`
}

// Reason classifies a protocol violation.
type Reason int

const (
	ReasonStuffing Reason = iota + 1
	ReasonForm
	ReasonCRC
)

func (r Reason) String() string {
	switch r {
	case ReasonStuffing:
		return "stuff error"
	case ReasonForm:
		return "form error"
	case ReasonCRC:
		return "crc error"
	default:
		return "none"
	}
}

// MarshalText encodes the reason by name.
func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// DecodeError spans a violation and the following error recovery, up to
// bus idle. At is the sample of the offending bit.
type DecodeError struct {
	Span
	Reason Reason `json:"reason"`
	At     uint64 `json:"at"`
}

func (StandardIdentifier) Kind() Kind { return KindStandardIdentifier }
func (ExtendedIdentifier) Kind() Kind { return KindExtendedIdentifier }
func (Control) Kind() Kind            { return KindControl }
func (DataByte) Kind() Kind           { return KindData }
func (Crc) Kind() Kind                { return KindCRC }
func (Ack) Kind() Kind                { return KindAck }
func (Eof) Kind() Kind                { return KindEOF }
func (Intermission) Kind() Kind       { return KindIntermission }
func (DecodeError) Kind() Kind        { return KindError }
