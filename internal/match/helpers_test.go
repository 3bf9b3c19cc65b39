package match

import (
	"github.com/garyellow/ntpu-section-swap/internal/storage"
)

func sec(number, day, start string) *storage.Section {
	return &storage.Section{Number: number, DayPattern: day, StartTime: start}
}

func want(number, day, start string) *storage.DesiredSection {
	return &storage.DesiredSection{Number: number, DayPattern: day, StartTime: start}
}

func anySection() *storage.DesiredSection {
	return &storage.DesiredSection{AnySection: true}
}

func swap(id, owner, course string, current *storage.Section, desired *storage.DesiredSection) *storage.Intent {
	return &storage.Intent{ID: id, OwnerID: owner, Kind: storage.KindSwap, Course: course, Current: current, Desired: desired}
}

func drop(id, owner, course string, current *storage.Section) *storage.Intent {
	return &storage.Intent{ID: id, OwnerID: owner, Kind: storage.KindDrop, Course: course, Current: current}
}

func request(id, owner, course string, desired *storage.DesiredSection) *storage.Intent {
	return &storage.Intent{ID: id, OwnerID: owner, Kind: storage.KindRequest, Course: course, Desired: desired}
}

// Swapper A and B from the mutual-swap example.
var (
	sec1MW10  = func() *storage.Section { return sec("1", "Mon/Wed", "10:00 AM") }
	sec2STT9  = func() *storage.Section { return sec("2", "Sun/Tue/Thu", "9:00 AM") }
	want1MW10 = func() *storage.DesiredSection { return want("1", "Mon/Wed", "10:00 AM") }
	want2STT9 = func() *storage.DesiredSection { return want("2", "Sun/Tue/Thu", "9:00 AM") }
)
