package client

import "context"

// waiter is a one-shot response slot. It is registered before the request
// that triggers the response is sent, and removed when it fires.
type waiter struct {
	accept func(any) bool
	result chan any
}

func (c *Client) await(accept func(any) bool) (uint64, <-chan any) {
	w := &waiter{accept: accept, result: make(chan any, 1)}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.nextToken++
	c.waiters[c.nextToken] = w
	return c.nextToken, w.result
}

func (c *Client) cancelWait(token uint64) {
	c.mu.Lock()
	delete(c.waiters, token)
	c.mu.Unlock()
}

// offer hands v to every waiter that accepts it.
func (c *Client) offer(v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for token, w := range c.waiters {
		if w.accept(v) {
			delete(c.waiters, token)
			w.result <- v
		}
	}
}

// wait blocks until the waiter fires, ctx is done or the serve loop of the
// transport the request went out on has exited.
func (c *Client) wait(ctx context.Context, token uint64, result <-chan any, served <-chan struct{}) (any, error) {
	select {
	case v := <-result:
		return v, nil
	case <-ctx.Done():
		c.cancelWait(token)
		return nil, ctx.Err()
	case <-served:
		c.cancelWait(token)
		select {
		case v := <-result:
			return v, nil
		default:
		}
		return nil, c.connErr()
	}
}
