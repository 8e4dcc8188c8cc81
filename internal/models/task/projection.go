package task

import (
	"slices"
	"strings"
)

type Filter string
type SortBy string

const FilterAll Filter = "all"
const FilterCompleted Filter = "completed"
const FilterPending Filter = "pending"

const SortNone SortBy = "none"
const SortPriority SortBy = "priority"
const SortDate SortBy = "date"

// ParseFilter maps an empty string to FilterAll.
func ParseFilter(s string) (Filter, bool) {
	switch f := Filter(strings.ToLower(strings.TrimSpace(s))); f {
	case "":
		return FilterAll, true
	case FilterAll, FilterCompleted, FilterPending:
		return f, true
	default:
		return "", false
	}
}

// ParseSortBy maps an empty string to SortNone.
func ParseSortBy(s string) (SortBy, bool) {
	switch sb := SortBy(strings.ToLower(strings.TrimSpace(s))); sb {
	case "":
		return SortNone, true
	case SortNone, SortPriority, SortDate:
		return sb, true
	default:
		return "", false
	}
}

func (f Filter) keep(t Task) bool {
	switch f {
	case FilterCompleted:
		return t.Completed
	case FilterPending:
		return !t.Completed
	default:
		return true
	}
}

// Project returns a new filtered and sorted sequence; the input is never modified.
// Both sorts are stable: equal keys keep their relative order from the filtered input.
func Project(tasks []Task, filter Filter, sortBy SortBy) []Task {
	res := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if filter.keep(t) {
			res = append(res, t)
		}
	}

	switch sortBy {
	case SortPriority:
		slices.SortStableFunc(res, comparePriorityDesc)
	case SortDate:
		slices.SortStableFunc(res, compareReminderAsc)
	}
	return res
}

func comparePriorityDesc(a, b Task) int {
	return b.Priority.Weight() - a.Priority.Weight()
}

// отсутствие напоминания считается самой ранней датой
func compareReminderAsc(a, b Task) int {
	at, aok := a.ReminderDate.Get()
	bt, bok := b.ReminderDate.Get()
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return -1
	case !bok:
		return 1
	default:
		return at.Compare(bt)
	}
}
