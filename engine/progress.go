package engine

import (
	"fmt"
	"sort"
)

// Video lessons must be watched at least this far before they can be
// marked complete. Reading and quiz lessons complete immediately.
const minWatchPercent = 80.0

// Tracker derives lesson accessibility and aggregate completion from a
// course snapshot. Gating is a linear chain: lesson 0 is always open,
// every later lesson opens once its immediate predecessor is completed.
type Tracker struct {
	courseID uint
	lessons  []Lesson
	progress map[uint]LessonProgress
}

// NewTracker builds a tracker from a gateway snapshot. Lessons are
// ordered by position; the snapshot's progress map is copied so the
// tracker's optimistic updates never alias the caller's state.
func NewTracker(snap *CourseSnapshot) *Tracker {
	t := &Tracker{
		courseID: snap.CourseID,
		lessons:  make([]Lesson, len(snap.Lessons)),
		progress: make(map[uint]LessonProgress, len(snap.Progress)),
	}
	copy(t.lessons, snap.Lessons)
	sort.SliceStable(t.lessons, func(i, j int) bool {
		return t.lessons[i].Position < t.lessons[j].Position
	})
	for id, rec := range snap.Progress {
		t.progress[id] = rec
	}
	return t
}

// Lessons returns the catalog in gating order.
func (t *Tracker) Lessons() []Lesson {
	return t.lessons
}

// Progress returns the stored record for a lesson, if any.
func (t *Tracker) Progress(lessonID uint) (LessonProgress, bool) {
	rec, ok := t.progress[lessonID]
	return rec, ok
}

// Accessible reports whether the lesson at the given position index may
// be opened. Index 0 is always accessible; index i requires the lesson
// at i-1 to be completed. Looking only one step back keeps the result
// monotonic by construction: a completed predecessor was itself
// accessible when it was completed.
func (t *Tracker) Accessible(index int) bool {
	if index < 0 || index >= len(t.lessons) {
		return false
	}
	if index == 0 {
		return true
	}
	rec, ok := t.progress[t.lessons[index-1].ID]
	return ok && rec.Completed
}

// AccessibleByID resolves a lesson id to its position and reports
// accessibility. Unknown lessons are ErrLessonNotFound.
func (t *Tracker) AccessibleByID(lessonID uint) (bool, error) {
	idx := t.indexOf(lessonID)
	if idx < 0 {
		return false, ErrLessonNotFound
	}
	return t.Accessible(idx), nil
}

// Overall returns the course completion percentage: the arithmetic mean
// of every lesson's stored percent, with missing records counting as 0.
// Full precision is kept; rounding is a display concern. An empty
// catalog yields 0, which is not an error.
func (t *Tracker) Overall() float64 {
	if len(t.lessons) == 0 {
		return 0
	}
	var sum float64
	for _, l := range t.lessons {
		if rec, ok := t.progress[l.ID]; ok {
			sum += rec.Percent
		}
	}
	return sum / float64(len(t.lessons))
}

// CanComplete checks the completion policy for a lesson: video lessons
// need at least minWatchPercent watched, other types complete
// immediately. The returned reason is empty when completion is allowed.
func (t *Tracker) CanComplete(lessonID uint) (bool, string) {
	idx := t.indexOf(lessonID)
	if idx < 0 {
		return false, "Lesson not found"
	}
	lesson := t.lessons[idx]
	if lesson.LessonType != LessonTypeVideo {
		return true, ""
	}
	watch := 0.0
	if rec, ok := t.progress[lessonID]; ok {
		watch = rec.WatchPercent
	}
	if watch >= minWatchPercent {
		return true, ""
	}
	return false, fmt.Sprintf("Must watch at least %.0f%% of video (currently %.1f%%)", minWatchPercent, watch)
}

// MarkComplete applies the optimistic local completion: the record is
// created if missing, then set to completed with 100 percent. The caller
// persists the update through the gateway and reconciles with a fresh
// snapshot; the local value is never treated as permanent truth.
func (t *Tracker) MarkComplete(lessonID uint) error {
	if t.indexOf(lessonID) < 0 {
		return ErrLessonNotFound
	}
	rec := t.progress[lessonID]
	rec.LessonID = lessonID
	rec.Completed = true
	rec.Percent = 100
	t.progress[lessonID] = rec
	return nil
}

// RecordWatchTime folds a video watch report into the lesson's progress
// record without flipping the completed flag. The in-progress percent
// tracks the watch percent so partially watched lessons contribute to
// the overall course percentage.
func (t *Tracker) RecordWatchTime(lessonID uint, watchedSeconds, videoDurationSeconds int) (LessonProgress, error) {
	if t.indexOf(lessonID) < 0 {
		return LessonProgress{}, ErrLessonNotFound
	}
	rec := t.progress[lessonID]
	rec.LessonID = lessonID
	rec.TimeSpentSeconds += watchedSeconds
	if videoDurationSeconds > 0 {
		pct := float64(rec.TimeSpentSeconds) / float64(videoDurationSeconds) * 100
		if pct > 100 {
			pct = 100
		}
		if pct > rec.WatchPercent {
			rec.WatchPercent = pct
		}
	}
	if !rec.Completed && rec.WatchPercent > rec.Percent {
		rec.Percent = rec.WatchPercent
	}
	t.progress[lessonID] = rec
	return rec, nil
}

// Reconcile replaces local derived state with the authoritative remote
// snapshot after a successful gateway call.
func (t *Tracker) Reconcile(snap *CourseSnapshot) {
	fresh := NewTracker(snap)
	t.courseID = fresh.courseID
	t.lessons = fresh.lessons
	t.progress = fresh.progress
}

func (t *Tracker) indexOf(lessonID uint) int {
	for i, l := range t.lessons {
		if l.ID == lessonID {
			return i
		}
	}
	return -1
}
