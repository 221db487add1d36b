package planner

import "testing"

func TestOrderTreeMatchesSort(t *testing.T) {
	t.Parallel()
	tasks := []*Task{
		mustTask(t, 1, "Watch K-drama", at(1, 23, 0), 90, PriorityLow),
		mustTask(t, 2, "Finish project report", at(2, 18, 0), 180, PriorityHigh),
		mustTask(t, 3, "Workout", at(0, 20, 0), 60, PriorityMedium),
		mustTask(t, 4, "Study for exam", at(1, 21, 0), 120, PriorityHigh),
		mustTask(t, 5, "Tie A", at(1, 21, 0), 30, PriorityHigh),
		mustTask(t, 6, "Reading", at(0, 20, 0), 45, PriorityMedium),
	}

	tree := NewOrderTree(tasks...)
	if tree.Len() != len(tasks) {
		t.Fatalf("Len = %d, want %d", tree.Len(), len(tasks))
	}

	got := tree.Tasks()
	want := OrderTasks(tasks)
	if len(got) != len(want) {
		t.Fatalf("tree yielded %d tasks, sort %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("position %d: tree %q, sort %q", i, got[i].Name, want[i].Name)
		}
	}

	wantIDs := []uint{4, 5, 2, 3, 6, 1}
	for i, id := range wantIDs {
		if got[i].ID != id {
			t.Fatalf("position %d: id %d, want %d", i, got[i].ID, id)
		}
	}
}

func TestOrderTreeIncrementalAndEarlyStop(t *testing.T) {
	t.Parallel()
	tree := NewOrderTree()
	for range tree.All() {
		t.Fatalf("empty tree yielded a task")
	}

	tree.Insert(mustTask(t, 1, "Low", at(0, 20, 0), 30, PriorityLow))
	tree.Insert(mustTask(t, 2, "High", at(3, 20, 0), 30, PriorityHigh))
	tree.Insert(mustTask(t, 3, "Medium", at(0, 10, 0), 30, PriorityMedium))

	var first *Task
	for task := range tree.All() {
		first = task
		break
	}
	if first == nil || first.ID != 2 {
		t.Fatalf("first task = %v, want High", first)
	}
}
