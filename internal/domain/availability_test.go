package domain

import (
	"reflect"
	"testing"

	"github.com/google/uuid"
)

func TestComputeAvailability(t *testing.T) {
	tripID := uuid.New()

	a := ComputeAvailability(tripID, 6, []int{2, 5}, []int{3})
	if a.Total != 6 {
		t.Errorf("expected total 6, got %d", a.Total)
	}
	if !reflect.DeepEqual(a.Available, []int{1, 4, 6}) {
		t.Errorf("unexpected available set: %v", a.Available)
	}
	if !reflect.DeepEqual(a.Booked, []int{2, 5}) {
		t.Errorf("unexpected booked set: %v", a.Booked)
	}
	if !reflect.DeepEqual(a.Held, []int{3}) {
		t.Errorf("unexpected held set: %v", a.Held)
	}
}

func TestComputeAvailabilityEmpty(t *testing.T) {
	a := ComputeAvailability(uuid.New(), 3, nil, nil)
	if !reflect.DeepEqual(a.Available, []int{1, 2, 3}) {
		t.Errorf("unexpected available set: %v", a.Available)
	}
}
