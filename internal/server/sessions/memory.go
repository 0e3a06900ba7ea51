package sessions

import "context"

// Memory is the default backend. Sessions are lost on restart.
type Memory struct {
	m map[string]Record
}

func NewMemory() *Memory {
	return &Memory{m: make(map[string]Record)}
}

func (m *Memory) Put(_ context.Context, id string, rec Record) error {
	m.m[id] = rec
	return nil
}

func (m *Memory) Get(id string) (Record, bool) {
	rec, ok := m.m[id]
	return rec, ok
}

func (m *Memory) Delete(_ context.Context, id string) error {
	delete(m.m, id)
	return nil
}

func (m *Memory) DeleteWhere(_ context.Context, match func(Record) bool) (int, error) {
	n := 0
	for id, rec := range m.m {
		if match(rec) {
			delete(m.m, id)
			n++
		}
	}
	return n, nil
}

func (m *Memory) Count() int { return len(m.m) }
