package maintenance

import (
	"context"
	"sync"
)

type repoMock struct {
	mutex sync.Mutex
	flag  *Flag
	// errors to inject
	getErr error
	setErr error
}

func newMockRepo(flag *Flag) *repoMock {
	return &repoMock{flag: flag}
}

func (r *repoMock) Get(_ context.Context) (*Flag, error) {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.getErr != nil {
		return nil, r.getErr
	}
	if r.flag == nil {
		return nil, ErrFlagNotFound
	}
	flagCopy := *r.flag
	return &flagCopy, nil
}

func (r *repoMock) SetEnabled(_ context.Context, id int, enabled bool) error {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	if r.setErr != nil {
		return r.setErr
	}
	if r.flag == nil || r.flag.ID != id {
		return ErrFlagNotFound
	}
	r.flag.Enabled = enabled
	return nil
}
