package model

import "time"

type demoSlot struct {
	day, hour, min  int
	endHour, endMin int
	title           string
	category        Category
	completed       bool
}

var demoWeek = []demoSlot{ //nolint:gochecknoglobals // fixed seed data
	{0, 8, 0, 8, 30, "Wake up & Meditate", CategoryPersonal, false},
	{0, 11, 0, 12, 30, "Brunch with Family", CategoryPersonal, false},
	{0, 14, 0, 15, 30, "Weekly Review & Plan", CategoryWork, false},
	{0, 16, 0, 17, 0, "Go for a walk outdoors", CategoryPersonal, false},
	{0, 18, 0, 19, 0, "Prepare for Monday", CategoryWork, false},
	{0, 21, 0, 22, 0, "Read and Relax", CategoryPersonal, false},
	{1, 9, 0, 10, 30, "Calculus II", CategoryStudy, true},
	{1, 11, 0, 12, 30, "Physics Lab", CategoryStudy, false},
	{1, 13, 0, 14, 0, "Lunch with Mentor", CategoryPersonal, false},
	{1, 14, 0, 15, 30, "English Literature Seminar", CategoryStudy, false},
	{1, 17, 0, 18, 0, "Review today's notes", CategoryStudy, false},
	{1, 18, 0, 19, 0, "Dinner with family", CategoryPersonal, true},
	{2, 8, 30, 10, 0, "Computer Science Lecture", CategoryStudy, true},
	{2, 13, 0, 15, 0, "Part-time Job", CategoryWork, false},
	{2, 15, 0, 16, 30, "History of Arts", CategoryStudy, false},
	{2, 17, 30, 19, 0, "Assignment Work", CategoryWork, false},
	{2, 19, 0, 19, 45, "Dinner", CategoryPersonal, false},
	{2, 20, 0, 21, 0, "Read a book", CategoryPersonal, false},
	{3, 9, 0, 10, 30, "Calculus II Tutorial", CategoryStudy, false},
	{3, 11, 0, 12, 0, "Gym Session", CategoryPersonal, true},
	{3, 14, 0, 16, 45, "Chemistry Lab", CategoryStudy, false},
	{3, 18, 0, 19, 30, "Evening Study Session", CategoryStudy, false},
	{3, 19, 30, 20, 0, "Call friends", CategoryPersonal, false},
	{4, 10, 0, 11, 30, "Computer Science Lab", CategoryStudy, false},
	{4, 13, 0, 14, 30, "Group Project Meeting", CategoryWork, true},
	{4, 15, 0, 16, 30, "Economics Lecture", CategoryStudy, false},
	{4, 18, 30, 19, 30, "Hobby time: Painting", CategoryPersonal, false},
	{4, 21, 0, 21, 30, "Pack for tomorrow", CategoryPersonal, false},
	{5, 9, 0, 10, 30, "Final Project Presentation Prep", CategoryWork, false},
	{5, 11, 0, 12, 30, "Foreign Language Class", CategoryStudy, false},
	{5, 14, 0, 15, 45, "Career Services Workshop", CategoryPersonal, false},
	{5, 17, 0, 17, 30, "Weekend Planning", CategoryPersonal, false},
	{5, 20, 0, 22, 0, "Movie night", CategoryPersonal, false},
	{6, 9, 0, 10, 0, "Morning Workout", CategoryPersonal, false},
	{6, 10, 30, 12, 30, "Study Session", CategoryStudy, false},
	{6, 13, 0, 14, 0, "Lunch", CategoryPersonal, false},
	{6, 15, 0, 17, 0, "Hobby Time", CategoryPersonal, false},
	{6, 19, 0, 20, 30, "Dinner with Friends", CategoryPersonal, false},
	{6, 21, 0, 22, 0, "Relax", CategoryPersonal, false},
}

// DemoWeek returns the sample routine laid out over the Sunday-started week
// containing now. newID supplies each event id.
func DemoWeek(owner string, now time.Time, newID func() string) []Event {
	y, m, d := now.Date()
	loc := now.Location()
	sunday := d - int(now.Weekday())

	events := make([]Event, 0, len(demoWeek))
	for _, s := range demoWeek {
		e := NewEvent(newID(), owner, Draft{
			Title:    s.title,
			Start:    time.Date(y, m, sunday+s.day, s.hour, s.min, 0, 0, loc),
			End:      time.Date(y, m, sunday+s.day, s.endHour, s.endMin, 0, 0, loc),
			Category: s.category,
		}, now)
		e.Completed = s.completed
		events = append(events, e)
	}
	return events
}
