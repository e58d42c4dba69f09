package reminder

import "taskboss/internal/model"

// GroupBy selects how tasks are bucketed for recipients.
type GroupBy string

const (
	GroupByPIC  GroupBy = "pic"
	GroupByNone GroupBy = "none"
)

// Bucket is the set of tasks addressed to one recipient key.
type Bucket struct {
	// Key is the PIC name, or empty for GroupByNone.
	Key   string
	Tasks []model.Task
}

// Aggregate partitions tasks into buckets. Buckets appear in order of first
// appearance of their key and tasks keep their input order, so callers sort
// before aggregating. GroupByNone always yields exactly one bucket.
func Aggregate(tasks []model.Task, by GroupBy) []Bucket {
	if by != GroupByPIC {
		all := make([]model.Task, len(tasks))
		copy(all, tasks)
		return []Bucket{{Tasks: all}}
	}

	var buckets []Bucket
	index := make(map[string]int)
	for _, task := range tasks {
		i, ok := index[task.PIC]
		if !ok {
			i = len(buckets)
			index[task.PIC] = i
			buckets = append(buckets, Bucket{Key: task.PIC})
		}
		buckets[i].Tasks = append(buckets[i].Tasks, task)
	}
	return buckets
}
