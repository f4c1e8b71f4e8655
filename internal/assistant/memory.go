package assistant

import "sync"

// Exchange is one human input and the assistant output that answered it.
type Exchange struct {
	Input  string
	Output string
}

// Memory is a bounded dialogue buffer; the oldest exchanges fall off first.
type Memory struct {
	mu        sync.Mutex
	exchanges []Exchange
	limit     int
}

// NewMemory creates a Memory holding at most limit exchanges. A limit of
// zero or less means unbounded.
func NewMemory(limit int) *Memory {
	return &Memory{limit: limit}
}

// Append records an exchange.
func (m *Memory) Append(e Exchange) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.exchanges = append(m.exchanges, e)
	if m.limit > 0 && len(m.exchanges) > m.limit {
		m.exchanges = append([]Exchange(nil), m.exchanges[len(m.exchanges)-m.limit:]...)
	}
}

// History returns a copy of the buffered exchanges, oldest first.
func (m *Memory) History() []Exchange {
	m.mu.Lock()
	defer m.mu.Unlock()

	return append([]Exchange(nil), m.exchanges...)
}

// Len returns the number of buffered exchanges.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.exchanges)
}

// PairTurns seeds exchanges from stored turns ordered oldest first, pairing
// positions (0,1), (2,3), ... as human then assistant. A trailing unpaired
// turn is dropped.
func PairTurns(contents []string) []Exchange {
	out := make([]Exchange, 0, len(contents)/2)
	for i := 0; i+1 < len(contents); i += 2 {
		out = append(out, Exchange{Input: contents[i], Output: contents[i+1]})
	}
	return out
}
