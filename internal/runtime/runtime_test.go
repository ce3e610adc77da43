package runtime

import (
	"reflect"
	"testing"
)

func TestCleanupStackUnwindsInReverse(t *testing.T) {
	var order []string
	var cleanups cleanupStack
	cleanups.push(func() { order = append(order, "bus") })
	cleanups.push(func() { order = append(order, "store") })
	cleanups.push(func() { order = append(order, "recorder") })

	cleanups.unwind()

	want := []string{"recorder", "store", "bus"}
	if !reflect.DeepEqual(order, want) {
		t.Fatalf("unexpected teardown order: %v", order)
	}
}

func TestCleanupStackEmptyUnwindIsNoOp(t *testing.T) {
	var cleanups cleanupStack
	cleanups.unwind() // must not panic
}
