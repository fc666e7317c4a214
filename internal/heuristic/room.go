package heuristic

import (
	"sort"

	"github.com/google/uuid"

	"github.com/slymn80/timetables/internal/constraint"
	"github.com/slymn80/timetables/internal/domain"
	"github.com/slymn80/timetables/internal/snapshot"
)

// requiresSpecialRoom reports whether a subject's room requirement names a
// non-classroom type. The hybrid policy only reaches for a teacher's
// default room when this holds.
func requiresSpecialRoom(subject domain.Subject) bool {
	return subject.RequiresRoomType != nil && *subject.RequiresRoomType != domain.RoomClassroom
}

// resolveRoom picks a room for one committed slot per the room policy. A nil
// return means the entry is written without a room — a legitimate outcome,
// not a failure.
func resolveRoom(
	snap *snapshot.Snapshot,
	tracker *constraint.Tracker,
	policy domain.RoomPolicy,
	lesson domain.Lesson,
	class domain.Class,
	subject domain.Subject,
	teacherID uuid.UUID,
	slotID uuid.UUID,
) *uuid.UUID {
	special := requiresSpecialRoom(subject)

	switch policy {
	case domain.RoomPolicyClassesFixed:
		if class.DefaultRoomID != nil && tracker.IsRoomAvailable(slotID, *class.DefaultRoomID) {
			return class.DefaultRoomID
		}
		return nil

	case domain.RoomPolicyTeachersFixed:
		if teacherID != uuid.Nil {
			if t, ok := snap.Teachers[teacherID]; ok && t.DefaultRoomID != nil && tracker.IsRoomAvailable(slotID, *t.DefaultRoomID) {
				return t.DefaultRoomID
			}
		}
		return nil

	case domain.RoomPolicyHybrid:
		if special && teacherID != uuid.Nil {
			if t, ok := snap.Teachers[teacherID]; ok && t.DefaultRoomID != nil && tracker.IsRoomAvailable(slotID, *t.DefaultRoomID) {
				return t.DefaultRoomID
			}
			return nil
		}
		if class.DefaultRoomID != nil && tracker.IsRoomAvailable(slotID, *class.DefaultRoomID) {
			return class.DefaultRoomID
		}
		return nil

	default: // domain.RoomPolicyNone and anything unrecognised: scan freely
		return scanRooms(snap, tracker, subject, special, slotID)
	}
}

// scanRooms prefers a free room matching the subject's required type,
// falling back to any free room. Room IDs
// are visited in sorted order rather than map iteration order so the choice
// among several equally-free rooms is stable across runs.
func scanRooms(snap *snapshot.Snapshot, tracker *constraint.Tracker, subject domain.Subject, special bool, slotID uuid.UUID) *uuid.UUID {
	ids := make([]uuid.UUID, 0, len(snap.Rooms))
	for id := range snap.Rooms {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	var fallback *uuid.UUID
	for _, id := range ids {
		if !tracker.IsRoomAvailable(slotID, id) {
			continue
		}
		roomID := id
		room := snap.Rooms[id]
		if special && subject.RequiresRoomType != nil && room.RoomType == *subject.RequiresRoomType {
			return &roomID
		}
		if fallback == nil {
			fallback = &roomID
		}
	}
	return fallback
}
