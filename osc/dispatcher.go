package osc

import (
	"fmt"
	"net"
	"strings"
	"sync"
)

// Method is an interface for OSC Methods.
type Method interface {
	HandleMessage(msg *Message)
}

// MethodFunc implements the Method interface. Type definition for an OSC Method function.
type MethodFunc func(msg *Message)

// HandleMessage calls itself with the given OSC Message. Implements the Method interface.
func (f MethodFunc) HandleMessage(msg *Message) {
	f(msg)
}

// Dispatcher routes received messages to the Method registered for their
// exact address. Messages with no registered Method go to Default, if set.
// Address patterns are not expanded.
type Dispatcher struct {
	mu      sync.RWMutex
	methods map[string]Method
	Default Method
}

// AddMethod adds a new OSC Method for the given OSC Address.
func (d *Dispatcher) AddMethod(addr string, method Method) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.methods == nil {
		d.methods = make(map[string]Method)
	}

	if !strings.HasPrefix(addr, "/") {
		return fmt.Errorf("AddMethod: OSC address must start with '/'")
	}

	if strings.ContainsAny(addr, "*?,[]{}# ") {
		return fmt.Errorf("AddMethod: OSC Method may not contain any characters in \"*?,[]{}# \"")
	}

	if _, ok := d.methods[addr]; ok {
		return fmt.Errorf("AddMethod: OSC Method exists already")
	}

	d.methods[addr] = method
	return nil
}

// AddMethodFunc allows you to just pass a MethodFunc.
func (d *Dispatcher) AddMethodFunc(addr string, method MethodFunc) error {
	return d.AddMethod(addr, method)
}

// RemoveMethod drops the Method registered for addr, if any.
func (d *Dispatcher) RemoveMethod(addr string) {
	d.mu.Lock()
	delete(d.methods, addr)
	d.mu.Unlock()
}

// Dispatch hands msg to the matching Method.
func (d *Dispatcher) Dispatch(msg *Message, _ net.Addr) {
	d.mu.RLock()
	method, ok := d.methods[msg.Address]
	if !ok {
		method = d.Default
	}
	d.mu.RUnlock()

	if method != nil {
		method.HandleMessage(msg)
	}
}
