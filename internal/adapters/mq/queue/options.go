package queue

type config struct {
	capacity int
	onDrop   func()
}

// Option configures an InMemoryQueue.
type Option func(*config)

// WithCapacity sets how many items the queue buffers.
func WithCapacity(capacity int) Option {
	return func(c *config) {
		if capacity > 0 {
			c.capacity = capacity
		}
	}
}

// WithDropHook is called each time Enqueue rejects an item because the queue is full.
func WithDropHook(fn func()) Option {
	return func(c *config) {
		c.onDrop = fn
	}
}
