package middleware

import (
	"errors"
	"testing"

	"github.com/tetrachromeio/aether/core/http"
)

func TestChainOrder(t *testing.T) {
	c := New()
	var order []int

	c.Use(func(req *http.Request, res *http.Response, next func(), nextErr func(error)) {
		order = append(order, 1)
		next()
	})
	c.Use(func(req *http.Request, res *http.Response, next func(), nextErr func(error)) {
		order = append(order, 2)
		next()
	})

	finalCalled := false
	c.Run(nil, nil, func(req *http.Request, res *http.Response) {
		finalCalled = true
		order = append(order, 3)
	}, func(err error) {
		t.Fatalf("unexpected unhandled error: %v", err)
	})

	if !finalCalled {
		t.Error("final handler was not reached")
	}
	want := []int{1, 2, 3}
	if len(order) != len(want) {
		t.Fatalf("expected order %v, got %v", want, order)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Errorf("expected order %v, got %v", want, order)
			break
		}
	}
}

func TestChainShortCircuit(t *testing.T) {
	c := New()
	secondCalled := false

	c.Use(func(req *http.Request, res *http.Response, next func(), nextErr func(error)) {
		// does not call next: terminates the chain
	})
	c.Use(func(req *http.Request, res *http.Response, next func(), nextErr func(error)) {
		secondCalled = true
		next()
	})

	finalCalled := false
	c.Run(nil, nil, func(req *http.Request, res *http.Response) {
		finalCalled = true
	}, func(err error) {})

	if secondCalled || finalCalled {
		t.Error("downstream middleware and final handler must not run after a non-advancing middleware")
	}
}

func TestChainErrorLane(t *testing.T) {
	c := New()
	boom := errors.New("boom")

	normalAfterError := false
	c.Use(func(req *http.Request, res *http.Response, next func(), nextErr func(error)) {
		nextErr(boom)
		next() // must be a no-op: the error lane is one-way
	})
	c.Use(func(req *http.Request, res *http.Response, next func(), nextErr func(error)) {
		normalAfterError = true
		next()
	})

	var caught error
	c.UseError(func(err error, req *http.Request, res *http.Response, next func(error)) {
		caught = err
	})

	c.Run(nil, nil, func(req *http.Request, res *http.Response) {
		t.Fatal("final handler must not run once the error lane is entered")
	}, func(err error) {
		t.Fatal("registered error handler should have handled this error")
	})

	if caught != boom {
		t.Errorf("expected error handler to receive %v, got %v", boom, caught)
	}
	if normalAfterError {
		t.Error("next() after nextErr() must not re-enter the normal lane")
	}
}

func TestChainUnhandledError(t *testing.T) {
	c := New()
	boom := errors.New("boom")

	c.Use(func(req *http.Request, res *http.Response, next func(), nextErr func(error)) {
		nextErr(boom)
	})

	var got error
	c.Run(nil, nil, func(req *http.Request, res *http.Response) {
		t.Fatal("final handler must not run on the error lane")
	}, func(err error) {
		got = err
	})

	if got != boom {
		t.Errorf("expected onUnhandled to receive %v, got %v", boom, got)
	}
}
