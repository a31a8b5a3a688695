package channel

import (
	"errors"
	"testing"

	"avaneesh/qcoder-go/pkg/j2735"
	"avaneesh/qcoder-go/pkg/qcoder"
	"avaneesh/qcoder-go/pkg/types"
)

func TestRouterRoute(t *testing.T) {
	r := NewRouter()

	var got []string
	record := func(name string) Handler {
		return HandlerFunc(func(m *qcoder.Message) error {
			got = append(got, name)
			return nil
		})
	}

	if err := r.AddHandler(RouteKey{Stack: types.StackSAE, MsgID: j2735.BasicSafetyMessage}, record("bsm")); err != nil {
		t.Fatalf("AddHandler failed: %v", err)
	}
	if err := r.AddHandler(RouteKey{Stack: types.StackETSI, MsgID: int(types.ItsMessageCAM)}, record("cam")); err != nil {
		t.Fatalf("AddHandler failed: %v", err)
	}

	tests := []struct {
		name    string
		msg     *qcoder.Message
		want    string
		wantErr error
	}{
		{"SAE by id", &qcoder.Message{Stack: types.StackSAE, MsgID: j2735.BasicSafetyMessage}, "bsm", nil},
		{"ETSI by id", &qcoder.Message{Stack: types.StackETSI, MsgID: int(types.ItsMessageCAM)}, "cam", nil},
		{"same id other stack", &qcoder.Message{Stack: types.StackETSI, MsgID: j2735.BasicSafetyMessage}, "", ErrNoHandler},
		{"unknown", &qcoder.Message{Stack: types.StackSAE, MsgID: j2735.MapData}, "", ErrNoHandler},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got = nil
			err := r.Route(tt.msg)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("Route error = %v, want %v", err, tt.wantErr)
			}
			if tt.want != "" && (len(got) != 1 || got[0] != tt.want) {
				t.Errorf("handled by %v, want %s", got, tt.want)
			}
		})
	}
}

func TestRouterFallback(t *testing.T) {
	r := NewRouter()
	called := 0
	r.SetFallback(HandlerFunc(func(m *qcoder.Message) error {
		called++
		return nil
	}))

	if err := r.Route(&qcoder.Message{Stack: types.StackSAE, MsgID: 99}); err != nil {
		t.Fatalf("Route failed: %v", err)
	}
	if called != 1 {
		t.Errorf("fallback called %d times, want 1", called)
	}

	r.Clear()
	if err := r.Route(&qcoder.Message{Stack: types.StackSAE, MsgID: 99}); !errors.Is(err, ErrNoHandler) {
		t.Errorf("after Clear, error = %v, want ErrNoHandler", err)
	}
}

func TestRouterAddRemove(t *testing.T) {
	r := NewRouter()
	key := RouteKey{Stack: types.StackSAE, MsgID: j2735.BasicSafetyMessage}
	h := HandlerFunc(func(m *qcoder.Message) error { return nil })

	if err := r.AddHandler(key, h); err != nil {
		t.Fatalf("AddHandler failed: %v", err)
	}
	if err := r.AddHandler(key, h); err == nil {
		t.Error("duplicate AddHandler succeeded")
	}
	if err := r.AddHandler(RouteKey{}, nil); !errors.Is(err, types.ErrInvalidArgument) {
		t.Errorf("nil handler error = %v, want ErrInvalidArgument", err)
	}
	if r.HandlerCount() != 1 {
		t.Errorf("HandlerCount = %d, want 1", r.HandlerCount())
	}

	r.RemoveHandler(key)
	if r.HandlerCount() != 0 {
		t.Errorf("HandlerCount after remove = %d, want 0", r.HandlerCount())
	}
}

func TestRouteKeyString(t *testing.T) {
	tests := []struct {
		key  RouteKey
		want string
	}{
		{RouteKey{Stack: types.StackSAE, MsgID: 20}, "SAE/20"},
		{RouteKey{Stack: types.StackETSI, MsgID: 2}, "ETSI/CAM"},
	}
	for _, tt := range tests {
		if got := tt.key.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
	}
}
