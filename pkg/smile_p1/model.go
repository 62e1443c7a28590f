package smile_p1

import (
	"context"
	"maps"
	"time"
)

type ModuleKind string

const (
	ModuleElectricity ModuleKind = "electricity"
	ModuleGas         ModuleKind = "gas"
)

var ModuleKinds = []ModuleKind{ModuleElectricity, ModuleGas}

type SmileP1Reader interface {
	GetInfo(ctx context.Context) (*GatewayInfo, error)
	GetModule(ctx context.Context, kind ModuleKind) (*Snapshot, error)
}

type GatewayInfo struct {
	Host         string
	ModuleId     string
	Manufacturer string
	Model        string
}

// Snapshot holds the numeric fields of one gateway module at one point in time.
// A Snapshot is never modified after creation.
type Snapshot struct {
	kind     ModuleKind
	moduleId string
	logDate  time.Time
	fields   map[string]float64
}

func NewSnapshot(kind ModuleKind, moduleId string, logDate time.Time, fields map[string]float64) *Snapshot {
	return &Snapshot{
		kind:     kind,
		moduleId: moduleId,
		logDate:  logDate,
		fields:   maps.Clone(fields),
	}
}

func (s *Snapshot) Kind() ModuleKind {
	return s.kind
}

func (s *Snapshot) ModuleId() string {
	return s.moduleId
}

// LogDate is the most recent measurement date reported by the gateway.
func (s *Snapshot) LogDate() time.Time {
	return s.logDate
}

func (s *Snapshot) Field(name string) (float64, bool) {
	value, ok := s.fields[name]
	return value, ok
}

func (s *Snapshot) Fields() map[string]float64 {
	return maps.Clone(s.fields)
}

func (s *Snapshot) Len() int {
	return len(s.fields)
}
