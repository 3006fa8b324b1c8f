package event

import (
	"testing"
)

func TestSubscribeAndPublish(t *testing.T) {
	bus := NewBus()

	var got []string
	bus.Subscribe("task.changed", func(e Event) {
		got = append(got, e.(TaskChangedEvent).TaskID)
	})

	bus.Publish(NewTaskChangedEvent("t1", "started"))
	bus.Publish(NewAgentChangedEvent("a1")) // different type, not delivered

	if len(got) != 1 || got[0] != "t1" {
		t.Errorf("delivered = %v, want [t1]", got)
	}
}

func TestSubscribeAllReceivesEverything(t *testing.T) {
	bus := NewBus()

	var types []string
	bus.SubscribeAll(func(e Event) {
		types = append(types, e.EventType())
	})

	bus.Publish(NewTaskChangedEvent("t1", "output"))
	bus.Publish(NewProjectChangedEvent("p1", "plan"))
	bus.Publish(NewStreamStateEvent(true, ""))

	want := []string{"task.changed", "project.changed", "stream.state"}
	if len(types) != len(want) {
		t.Fatalf("delivered %d events, want %d", len(types), len(want))
	}
	for i := range want {
		if types[i] != want[i] {
			t.Errorf("types[%d] = %s, want %s", i, types[i], want[i])
		}
	}
}

func TestSpecificHandlersRunBeforeWildcard(t *testing.T) {
	bus := NewBus()

	var order []string
	bus.SubscribeAll(func(Event) { order = append(order, "wildcard") })
	bus.Subscribe("task.changed", func(Event) { order = append(order, "specific") })

	bus.Publish(NewTaskChangedEvent("t1", "command"))

	if len(order) != 2 || order[0] != "specific" || order[1] != "wildcard" {
		t.Errorf("order = %v", order)
	}
}

func TestUnsubscribe(t *testing.T) {
	bus := NewBus()

	calls := 0
	id := bus.Subscribe("task.changed", func(Event) { calls++ })

	bus.Publish(NewTaskChangedEvent("t1", "started"))
	if !bus.Unsubscribe(id) {
		t.Error("Unsubscribe should find the subscription")
	}
	bus.Publish(NewTaskChangedEvent("t1", "completed"))

	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if bus.Unsubscribe(id) {
		t.Error("second Unsubscribe should return false")
	}
}

func TestPanickingHandlerDoesNotBlockDelivery(t *testing.T) {
	bus := NewBus()

	delivered := false
	bus.Subscribe("task.changed", func(Event) { panic("boom") })
	bus.Subscribe("task.changed", func(Event) { delivered = true })

	bus.Publish(NewTaskChangedEvent("t1", "started"))

	if !delivered {
		t.Error("panic in one handler must not block the next")
	}
}
