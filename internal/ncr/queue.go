/*
Copyright 2026 jr42.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package ncr

import (
	"encoding/json"
	"fmt"
	"sync"
)

// Queue is a FIFO of pending Name Change Requests. It is mutex-protected
// the same way the teacher guards its shared receiver state (a
// sync.RWMutex-wrapped slice/map) even though, per §5's concurrency model,
// the daemon's single receive loop is today the only producer — guarding
// it costs nothing and keeps the door open to additional producers later.
type Queue struct {
	mu      sync.RWMutex
	pending []Request
}

// NewQueue constructs an empty NCR queue.
func NewQueue() *Queue {
	return &Queue{}
}

// Enqueue appends req to the tail of the queue.
func (q *Queue) Enqueue(req Request) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.pending = append(q.pending, req)
}

// EnqueueAll appends reqs to the tail of the queue in order, e.g. the
// CHG_REMOVE-then-CHG_ADD pair §4.F produces for a changed FQDN.
func (q *Queue) EnqueueAll(reqs ...Request) {
	for _, r := range reqs {
		q.Enqueue(r)
	}
}

// Pop removes and returns the request at the head of the queue.
func (q *Queue) Pop() (Request, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.pending) == 0 {
		return Request{}, false
	}
	req := q.pending[0]
	q.pending = q.pending[1:]
	return req, true
}

// Len reports the number of requests currently queued.
func (q *Queue) Len() int {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return len(q.pending)
}

// Snapshot returns a copy of the queue's current contents without
// draining it, for inspection/testing.
func (q *Queue) Snapshot() []Request {
	q.mu.RLock()
	defer q.mu.RUnlock()
	out := make([]Request, len(q.pending))
	copy(out, q.pending)
	return out
}

// wireRequest is the JSON wire shape for a Request, matching the real DDNS
// updater's on-wire NCR protocol: camelCase fields, DHCID already rendered
// as uppercase hex by the producer.
type wireRequest struct {
	ChangeType     string `json:"changeType"`
	ForwardChange  bool   `json:"forwardChange"`
	ReverseChange  bool   `json:"reverseChange"`
	IPAddress      string `json:"ipAddress"`
	DHCID          string `json:"dhcid"`
	LeaseExpiresOn int64  `json:"leaseExpiresOn"`
	LeaseLength    uint32 `json:"leaseLength"`
	Status         string `json:"status"`
}

// Encode renders req as the JSON textual form §6 requires for the
// downstream DDNS consumer.
func Encode(req Request) ([]byte, error) {
	w := wireRequest{
		ChangeType:     string(req.ChangeType),
		ForwardChange:  req.ForwardChange,
		ReverseChange:  req.ReverseChange,
		IPAddress:      req.IPAddress.String(),
		DHCID:          req.DHCID,
		LeaseExpiresOn: req.LeaseExpiresOn,
		LeaseLength:    req.LeaseLength,
		Status:         string(req.Status),
	}
	b, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("ncr: encode request: %w", err)
	}
	return b, nil
}

// PopEncoded pops the head request and renders it as JSON in one step, the
// shape the daemon's downstream-NCR sender uses.
func (q *Queue) PopEncoded() ([]byte, bool, error) {
	req, ok := q.Pop()
	if !ok {
		return nil, false, nil
	}
	b, err := Encode(req)
	if err != nil {
		return nil, true, err
	}
	return b, true, nil
}
