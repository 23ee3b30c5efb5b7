// Package eventbus dispatches in-process events to handlers whose parameter
// list matches the published arguments.
package eventbus

import (
	"reflect"
	"sync"

	"github.com/sirupsen/logrus"
)

type EventBus interface {
	Publish(args ...interface{})
	Subscribe(handler interface{})
	Unsubscribe(handler interface{})
	Clear()
	SubscribersCount() int
}

type publisherImpl struct {
	log      *logrus.Logger
	mu       sync.RWMutex
	handlers []interface{}
}

func NewEventPublisher(log *logrus.Logger) EventBus {
	return &publisherImpl{log: log}
}

// MatchSignature reports whether handler can be called with args.
func MatchSignature(handler interface{}, args []interface{}) bool {
	t := reflect.TypeOf(handler)
	if t == nil || t.Kind() != reflect.Func || t.NumIn() != len(args) {
		return false
	}
	for i, arg := range args {
		paramType := t.In(i)
		if arg == nil {
			k := paramType.Kind()
			if k != reflect.Interface && k != reflect.Ptr {
				return false
			}
			continue
		}
		if !reflect.TypeOf(arg).AssignableTo(paramType) {
			return false
		}
	}
	return true
}

func (p *publisherImpl) Publish(args ...interface{}) {
	p.mu.RLock()
	handlers := append([]interface{}(nil), p.handlers...)
	p.mu.RUnlock()

	handled := false
	for _, handler := range handlers {
		if !MatchSignature(handler, args) {
			continue
		}
		v := reflect.ValueOf(handler)
		func() {
			defer func() {
				if r := recover(); r != nil && p.log != nil {
					p.log.WithField("handler", v.Type().String()).Errorf("eventbus: handler panicked: %v", r)
				}
			}()
			v.Call(callArgs(v.Type(), args))
			handled = true
		}()
	}

	if !handled && p.log != nil {
		p.log.Debugf("eventbus.Publish: no matching subscribers for %d args", len(args))
	}
}

func callArgs(t reflect.Type, args []interface{}) []reflect.Value {
	in := make([]reflect.Value, len(args))
	for i, arg := range args {
		if arg == nil {
			in[i] = reflect.Zero(t.In(i))
			continue
		}
		in[i] = reflect.ValueOf(arg)
	}
	return in
}

func (p *publisherImpl) Subscribe(handler interface{}) {
	if reflect.TypeOf(handler).Kind() != reflect.Func {
		panic("handler must be a function")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = append(p.handlers, handler)
}

func (p *publisherImpl) Unsubscribe(handler interface{}) {
	target := reflect.ValueOf(handler).Pointer()
	p.mu.Lock()
	defer p.mu.Unlock()
	for i, h := range p.handlers {
		if reflect.ValueOf(h).Pointer() == target {
			p.handlers = append(p.handlers[:i], p.handlers[i+1:]...)
			return
		}
	}
}

func (p *publisherImpl) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handlers = nil
}

func (p *publisherImpl) SubscribersCount() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.handlers)
}
