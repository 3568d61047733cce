package repair

import (
	"go.uber.org/zap"
)

// Outcome is the result of one strategy attempt.
type Outcome int

const (
	// Applied means the strategy fixed the violation.
	Applied Outcome = iota
	// Rejected means the strategy had no usable result.
	Rejected
	// Unresolved means every strategy failed and the violation stays.
	Unresolved
)

var outcomeNames = [...]string{"applied", "rejected", "unresolved"}

func (o Outcome) String() string {
	if o < Applied || o > Unresolved {
		return "unknown"
	}

	return outcomeNames[o]
}

// MarshalText implements encoding.TextMarshaler.
func (o Outcome) MarshalText() ([]byte, error) { return []byte(o.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (o *Outcome) UnmarshalText(b []byte) error {
	for i, n := range outcomeNames {
		if n == string(b) {
			*o = Outcome(i)
			return nil
		}
	}
	*o = Applied

	return nil
}

// Entry is one structured log record.
type Entry struct {
	Pass     string  `json:"pass"`
	Index    int     `json:"index"`
	Measure  int     `json:"measure"`
	Onset    float64 `json:"onset"`
	Strategy string  `json:"strategy"`
	Outcome  Outcome `json:"outcome"`
	Detail   string  `json:"detail,omitempty"`
}

// Log accumulates entries and mirrors them to a logger.
type Log struct {
	Entries []Entry
	logger  *zap.Logger
}

// NewLog returns a Log writing to logger; nil means zap.NewNop.
func NewLog(logger *zap.Logger) *Log {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Log{logger: logger}
}

func (l *Log) record(e Entry) {
	l.Entries = append(l.Entries, e)
	fields := []zap.Field{
		zap.String("pass", e.Pass),
		zap.Int("index", e.Index),
		zap.Int("measure", e.Measure),
		zap.Float64("onset", e.Onset),
		zap.String("strategy", e.Strategy),
		zap.Stringer("outcome", e.Outcome),
	}
	if e.Detail != "" {
		fields = append(fields, zap.String("detail", e.Detail))
	}
	if e.Outcome == Unresolved {
		l.logger.Warn("repair: unresolved violation", fields...)
		return
	}
	l.logger.Debug("repair: attempt", fields...)
}

// Unresolved returns the unresolved entries.
func (l *Log) Unresolved() []Entry {
	var out []Entry
	for _, e := range l.Entries {
		if e.Outcome == Unresolved {
			out = append(out, e)
		}
	}

	return out
}

// ByPass returns the entries of one pass.
func (l *Log) ByPass(name string) []Entry {
	var out []Entry
	for _, e := range l.Entries {
		if e.Pass == name {
			out = append(out, e)
		}
	}

	return out
}
