package llm

// SliceStream replays a fixed list of deltas and then reports err, if any.
// Providers without native streaming use it, and so do tests.
type SliceStream struct {
	deltas []Delta
	err    error
	pos    int
	closed bool
}

func NewSliceStream(deltas []Delta, err error) *SliceStream {
	return &SliceStream{deltas: deltas, err: err, pos: -1}
}

func (s *SliceStream) Next() bool {
	if s.closed || s.pos+1 >= len(s.deltas) {
		return false
	}
	s.pos++
	return true
}

func (s *SliceStream) Current() Delta {
	if s.pos < 0 || s.pos >= len(s.deltas) {
		return Delta{}
	}
	return s.deltas[s.pos]
}

func (s *SliceStream) Err() error {
	if s.closed || s.pos+1 < len(s.deltas) {
		return nil
	}
	return s.err
}

func (s *SliceStream) Close() error {
	s.closed = true
	return nil
}

// Closed reports whether Close was called.
func (s *SliceStream) Closed() bool { return s.closed }
