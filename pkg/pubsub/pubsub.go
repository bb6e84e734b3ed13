package pubsub

import "sync"

// PubSub fans values out to any number of subscribers. Publishing never
// blocks: a subscriber that falls behind loses its oldest buffered value.
// Thread safe.
type PubSub[T any] struct {
	mu     sync.Mutex
	subs   map[uint64]*Subscription[T]
	lastID uint64
	closed bool
}

func NewPubSub[T any]() *PubSub[T] {
	return &PubSub[T]{
		subs: make(map[uint64]*Subscription[T]),
	}
}

func (p *PubSub[T]) Publish(val T) {
	p.mu.Lock()
	defer p.mu.Unlock()

	for _, sub := range p.subs {
		sub.push(val)
	}
}

func (p *PubSub[T]) Subscribe(capacity int) *Subscription[T] {
	if capacity < 1 {
		capacity = 1
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	sub := &Subscription[T]{
		ch:     make(chan T, capacity),
		id:     p.lastID,
		pubsub: p,
	}
	p.lastID++
	if p.closed {
		close(sub.ch)
		return sub
	}
	p.subs[sub.id] = sub
	return sub
}

func (p *PubSub[T]) CloseAll() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for id := range p.subs {
		p.closeLocked(id)
	}
	p.closed = true
}

func (p *PubSub[T]) close(id uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closeLocked(id)
}

func (p *PubSub[T]) closeLocked(id uint64) {
	sub := p.subs[id]
	if sub == nil {
		return
	}
	close(sub.ch)
	delete(p.subs, id)
}

////////////////////////////////////////////////////////////////////////////////

type Subscription[T any] struct {
	ch     chan T
	id     uint64
	pubsub *PubSub[T]
}

func (s *Subscription[T]) Chan() <-chan T {
	return s.ch
}

func (s *Subscription[T]) Close() {
	s.pubsub.close(s.id)
}

// push is called with the owning PubSub locked, so it never races with a
// concurrent close of the channel.
func (s *Subscription[T]) push(val T) {
	for {
		select {
		case s.ch <- val:
			return
		default:
		}
		// Buffer full: drop the oldest value and retry.
		select {
		case <-s.ch:
		default:
		}
	}
}
