package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"contract-announcer/internal/announcer/dto"
	"contract-announcer/internal/announcer/repository"
	"contract-announcer/internal/entity"
	"contract-announcer/pkg/apperror"
)

type fakeLedger struct {
	mu          sync.Mutex
	entries     map[string]*entity.Announcement
	isErr       error
	recordErr   error
	recordCalls int
}

func newFakeLedger(ids ...string) *fakeLedger {
	l := &fakeLedger{entries: map[string]*entity.Announcement{}}
	for _, id := range ids {
		l.entries[id] = &entity.Announcement{ContractID: id}
	}
	return l
}

func (l *fakeLedger) IsAnnounced(_ context.Context, id string) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.isErr != nil {
		return false, l.isErr
	}
	_, ok := l.entries[id]
	return ok, nil
}

func (l *fakeLedger) Record(_ context.Context, a *entity.Announcement) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.recordCalls++
	if l.recordErr != nil {
		return l.recordErr
	}
	if _, ok := l.entries[a.ContractID]; ok {
		return apperror.New(apperror.KindDuplicate, "fake.record", repository.ErrAlreadyAnnounced)
	}
	l.entries[a.ContractID] = a
	return nil
}

// fakePublisher returns the scripted error for each call in order, then succeeds.
type fakePublisher struct {
	mu       sync.Mutex
	messages []string
	script   []error
}

func (p *fakePublisher) Publish(_ context.Context, text string) (entity.PublishReceipt, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	call := len(p.messages)
	p.messages = append(p.messages, text)
	if call < len(p.script) && p.script[call] != nil {
		return entity.PublishReceipt{}, p.script[call]
	}
	return entity.PublishReceipt{
		MessageID:   strconv.Itoa(call + 1),
		PublishedAt: testNow,
	}, nil
}

func (p *fakePublisher) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.messages)
}

type fakeSource struct {
	records []map[string]interface{}
	err     error
	params  []dto.FetchParams
}

func (s *fakeSource) Fetch(_ context.Context, params dto.FetchParams) ([]map[string]interface{}, error) {
	s.params = append(s.params, params)
	return s.records, s.err
}

type fakeLocker struct {
	deny     bool
	err      error
	acquired int
	released int
}

func (l *fakeLocker) Acquire(context.Context) (func(), bool, error) {
	if l.err != nil {
		return nil, false, l.err
	}
	if l.deny {
		return nil, false, nil
	}
	l.acquired++
	return func() { l.released++ }, true, nil
}

// sleepRecorder captures requested delays without waiting.
type sleepRecorder struct {
	delays []time.Duration
}

func (s *sleepRecorder) sleep(ctx context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return ctx.Err()
}

func (s *sleepRecorder) count(d time.Duration) int {
	n := 0
	for _, v := range s.delays {
		if v == d {
			n++
		}
	}
	return n
}
