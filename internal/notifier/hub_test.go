package notifier

import (
	"fmt"
	"sync"
	"testing"

	"dispatch/internal/domain"
)

func TestHub_PublishToRegisteredConnection(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	conn := hub.Register("rider-1", RoleRider)

	ok := hub.Publish("rider-1", RoleRider, Event{Name: EventTaxiFinding, OrderID: "order-1"})
	if !ok {
		t.Fatal("expected publish to succeed")
	}

	event := <-conn.Events()
	if event.Name != EventTaxiFinding || event.OrderID != "order-1" {
		t.Errorf("unexpected event: %+v", event)
	}
}

func TestHub_PublishToAbsentIdentityIsSilent(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	if hub.Publish("nobody", RoleRider, Event{Name: EventStart}) {
		t.Error("expected publish to report no delivery")
	}
}

func TestHub_RolesAreSeparateIdentities(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	riderConn := hub.Register("user-1", RoleRider)
	driverConn := hub.Register("user-1", RoleDriver)

	hub.Publish("user-1", RoleDriver, Event{Name: EventStart})

	select {
	case <-riderConn.Events():
		t.Fatal("rider connection received a driver-role event")
	default:
	}

	event := <-driverConn.Events()
	if event.Name != EventStart {
		t.Errorf("unexpected event: %+v", event)
	}
}

func TestHub_RegisterReplacesAndClosesOldConnection(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	old := hub.Register("rider-1", RoleRider)
	fresh := hub.Register("rider-1", RoleRider)

	if _, ok := <-old.Events(); ok {
		t.Error("expected old connection channel to be closed")
	}

	hub.Publish("rider-1", RoleRider, Event{Name: EventComplete})
	event := <-fresh.Events()
	if event.Name != EventComplete {
		t.Errorf("unexpected event: %+v", event)
	}
}

func TestHub_UnregisterLeavesReplacementAlone(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	old := hub.Register("rider-1", RoleRider)
	fresh := hub.Register("rider-1", RoleRider)

	// Old connection's deferred unregister fires after replacement.
	hub.Unregister(old)

	if !hub.Publish("rider-1", RoleRider, Event{Name: EventArrive}) {
		t.Fatal("expected replacement connection to still be registered")
	}
	event := <-fresh.Events()
	if event.Name != EventArrive {
		t.Errorf("unexpected event: %+v", event)
	}
}

func TestHub_FullBufferDropsEvent(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	hub.Register("rider-1", RoleRider)

	for i := 0; i < connBuffer; i++ {
		if !hub.Publish("rider-1", RoleRider, Event{Name: EventTaxiFinding}) {
			t.Fatalf("publish %d rejected before buffer filled", i)
		}
	}

	if hub.Publish("rider-1", RoleRider, Event{Name: EventTaxiFinding}) {
		t.Error("expected publish to drop once buffer is full")
	}
}

func TestHub_NotifyOrderReachesBothParties(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	riderConn := hub.Register("rider-1", RoleRider)
	driverConn := hub.Register("driver-1", RoleDriver)

	order := &domain.Order{ID: "order-1", RiderID: "rider-1", DriverID: "driver-1"}
	hub.NotifyOrder(order, EventStart, map[string]any{"k": "v"})

	riderEvent := <-riderConn.Events()
	driverEvent := <-driverConn.Events()

	if riderEvent.Name != EventStart || driverEvent.Name != EventStart {
		t.Errorf("unexpected events: rider=%+v driver=%+v", riderEvent, driverEvent)
	}
	if riderEvent.OrderID != "order-1" {
		t.Errorf("unexpected order id: %s", riderEvent.OrderID)
	}
}

func TestHub_NotifyOrderSkipsUnassignedDriver(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	riderConn := hub.Register("rider-1", RoleRider)

	order := &domain.Order{ID: "order-1", RiderID: "rider-1"}
	hub.NotifyOrder(order, EventTaxiFinding, nil)

	if event := <-riderConn.Events(); event.Name != EventTaxiFinding {
		t.Errorf("unexpected event: %+v", event)
	}
}

func TestHub_ConcurrentRegisterAndPublish(t *testing.T) {
	t.Parallel()

	hub := NewHub()
	order := &domain.Order{ID: "order-1", RiderID: "rider-1", DriverID: "driver-1"}

	var registered, drains, publishers sync.WaitGroup
	for i := 0; i < 20; i++ {
		i := i

		registered.Add(1)
		drains.Add(1)
		go func() {
			conn := hub.Register(fmt.Sprintf("rider-%d", i%5), RoleRider)
			registered.Done()
			// Drain whatever arrives so publishers never stall. The
			// channel closes when the connection is replaced or
			// unregistered below.
			defer drains.Done()
			for range conn.Events() {
			}
		}()

		publishers.Add(1)
		go func() {
			defer publishers.Done()
			hub.NotifyOrder(order, EventTaxiFinding, nil)
		}()
	}

	registered.Wait()
	publishers.Wait()

	// Close the surviving connection of every identity so each drain
	// goroutine sees its channel close.
	for i := 0; i < 5; i++ {
		conn := hub.Register(fmt.Sprintf("rider-%d", i), RoleRider)
		hub.Unregister(conn)
	}
	drains.Wait()
}
