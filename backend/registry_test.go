package backend_test

import (
	"errors"
	"slices"
	"testing"

	"github.com/gogpu/chipview/backend"
	"github.com/gogpu/chipview/backend/recording"
	"github.com/gogpu/chipview/gpucore"
)

func TestRecordingRegistered(t *testing.T) {
	if !backend.IsRegistered(backend.Recording) {
		t.Fatal("recording backend not registered on import")
	}
	if !slices.Contains(backend.Available(), backend.Recording) {
		t.Errorf("Available() = %v, missing recording", backend.Available())
	}
	dev, err := backend.Open(backend.Recording, backend.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if dev.Name() != backend.Recording {
		t.Errorf("Name() = %q", dev.Name())
	}
}

func TestOpenUnknown(t *testing.T) {
	_, err := backend.Open("no-such-backend", backend.Options{})
	if !errors.Is(err, backend.ErrBackendNotAvailable) {
		t.Errorf("err = %v, want ErrBackendNotAvailable", err)
	}
}

func TestRegisterUnregister(t *testing.T) {
	const name = "test-backend"
	opened := 0
	backend.Register(name, func(opts backend.Options) (gpucore.Device, error) {
		opened++
		if opts.Width != 64 {
			t.Errorf("factory got Width %d, want 64", opts.Width)
		}
		return recording.New(recording.Options{}), nil
	})
	t.Cleanup(func() { backend.Unregister(name) })

	if _, err := backend.Open(name, backend.Options{Width: 64}); err != nil {
		t.Fatal(err)
	}
	if opened != 1 {
		t.Errorf("factory called %d times", opened)
	}
	backend.Unregister(name)
	if backend.IsRegistered(name) {
		t.Error("still registered after Unregister")
	}
}

func TestOpenWrapsFactoryError(t *testing.T) {
	const name = "broken"
	boom := errors.New("boom")
	backend.Register(name, func(backend.Options) (gpucore.Device, error) { return nil, boom })
	t.Cleanup(func() { backend.Unregister(name) })

	if _, err := backend.Open(name, backend.Options{}); !errors.Is(err, boom) {
		t.Errorf("err = %v, want wrapped boom", err)
	}
}

func TestDefaultPrefersPriority(t *testing.T) {
	// Only recording is linked into this test binary; an extra backend
	// outside the priority list must not win over it.
	backend.Register("zzz", func(backend.Options) (gpucore.Device, error) {
		return nil, errors.New("should not be opened")
	})
	t.Cleanup(func() { backend.Unregister("zzz") })

	dev, err := backend.Default(backend.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if dev.Name() != backend.Recording {
		t.Errorf("Default() = %q, want recording", dev.Name())
	}
}

func TestDefaultFallsThroughFailures(t *testing.T) {
	backend.Register(backend.Native, func(backend.Options) (gpucore.Device, error) {
		return nil, errors.New("no gpu")
	})
	t.Cleanup(func() { backend.Unregister(backend.Native) })

	dev, err := backend.Default(backend.Options{})
	if err != nil {
		t.Fatal(err)
	}
	if dev.Name() != backend.Recording {
		t.Errorf("Default() = %q, want recording fallback", dev.Name())
	}
}

func TestClose(t *testing.T) {
	if err := backend.Close(recording.New(recording.Options{})); err != nil {
		t.Errorf("Close on a device without Close = %v", err)
	}
}
