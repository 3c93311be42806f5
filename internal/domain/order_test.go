package domain

import "testing"

func TestCanTransition(t *testing.T) {
	t.Parallel()

	tests := []struct {
		from OrderStatus
		to   OrderStatus
		want bool
	}{
		{OrderStatusScheduled, OrderStatusSearching, true},
		{OrderStatusScheduled, OrderStatusCancelled, true},
		{OrderStatusScheduled, OrderStatusAssigned, false},
		{OrderStatusSearching, OrderStatusAssigned, true},
		{OrderStatusSearching, OrderStatusOnTrip, false},
		{OrderStatusAssigned, OrderStatusOnTrip, true},
		{OrderStatusAssigned, OrderStatusSearching, false},
		{OrderStatusOnTrip, OrderStatusCompleted, true},
		{OrderStatusOnTrip, OrderStatusAssigned, false},
		{OrderStatusCompleted, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusSearching, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to); got != tt.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestTerminal(t *testing.T) {
	t.Parallel()

	for status, terminal := range map[OrderStatus]bool{
		OrderStatusScheduled: false,
		OrderStatusSearching: false,
		OrderStatusAssigned:  false,
		OrderStatusOnTrip:    false,
		OrderStatusCompleted: true,
		OrderStatusCancelled: true,
	} {
		o := Order{Status: status}
		if got := o.Terminal(); got != terminal {
			t.Errorf("Terminal() for %s = %v, want %v", status, got, terminal)
		}
	}
}

func TestDriverProfileComplete(t *testing.T) {
	t.Parallel()

	full := Driver{ID: "d", Name: "A", Phone: "+1", Vehicle: "Car", Plate: "X"}
	if !full.ProfileComplete() {
		t.Error("expected complete profile")
	}

	for _, mutate := range []func(*Driver){
		func(d *Driver) { d.Name = "" },
		func(d *Driver) { d.Phone = "" },
		func(d *Driver) { d.Vehicle = "" },
		func(d *Driver) { d.Plate = "" },
	} {
		d := full
		mutate(&d)
		if d.ProfileComplete() {
			t.Errorf("expected incomplete profile for %+v", d)
		}
	}
}
