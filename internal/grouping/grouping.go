// Package grouping groups multi-page records and generates record ids.
package grouping

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Split returns the base id and ordinal of a legacy id: the trailing digit
// run is the ordinal, absent means 0.
func Split(id string) (base string, ordinal int) {
	end := len(id)
	for end > 0 && id[end-1] >= '0' && id[end-1] <= '9' {
		end--
	}
	if end == len(id) {
		return id, 0
	}
	n, err := strconv.Atoi(id[end:])
	if err != nil {
		// Overflowing digit runs still group by their base.
		return id[:end], 0
	}
	return id[:end], n
}

// BaseID returns id without its trailing digit run.
func BaseID(id string) string {
	base, _ := Split(id)
	return base
}

// MemberID returns the id of page i of a group: the bare base for the first
// page, base+i afterwards.
func MemberID(base string, i int) string {
	if i == 0 {
		return base
	}
	return base + strconv.Itoa(i)
}

// NewID returns "<prefix>-<unix millis>-<random letters>". The id always ends
// in a letter, so appending an ordinal never collides with the id itself.
func NewID(prefix string, now time.Time) string {
	return prefix + "-" + strconv.FormatInt(now.UnixMilli(), 10) + "-" + randomLetters(6)
}

func randomLetters(n int) string {
	u := uuid.New()
	var b strings.Builder
	b.Grow(n)
	for i := 0; i < n; i++ {
		b.WriteByte('a' + u[i]%26)
	}
	return b.String()
}

// Group is the pages of one multi-page record.
type Group[T any] struct {
	ID      string
	Members []T
}

// KeyFunc returns the group id and ordinal of a record.
type KeyFunc[T any] func(T) (groupID string, ordinal int)

// By partitions items into groups. Groups keep the order of their first
// member; members are sorted by ordinal, ties kept in input order.
func By[T any](items []T, key KeyFunc[T]) []Group[T] {
	var groups []Group[T]
	ordinals := make([][]int, 0)
	index := make(map[string]int)
	for _, it := range items {
		id, ord := key(it)
		i, ok := index[id]
		if !ok {
			i = len(groups)
			index[id] = i
			groups = append(groups, Group[T]{ID: id})
			ordinals = append(ordinals, nil)
		}
		groups[i].Members = append(groups[i].Members, it)
		ordinals[i] = append(ordinals[i], ord)
	}
	for i := range groups {
		sort.Stable(byOrdinal[T]{members: groups[i].Members, ords: ordinals[i]})
	}
	return groups
}

type byOrdinal[T any] struct {
	members []T
	ords    []int
}

func (s byOrdinal[T]) Len() int           { return len(s.members) }
func (s byOrdinal[T]) Less(i, j int) bool { return s.ords[i] < s.ords[j] }
func (s byOrdinal[T]) Swap(i, j int) {
	s.members[i], s.members[j] = s.members[j], s.members[i]
	s.ords[i], s.ords[j] = s.ords[j], s.ords[i]
}
