package utils

import (
	"fmt"

	"github.com/google/uuid"
)

// ClientToken derives the stable per-(student, course) thread token.
// The same student always lands in the same thread for a course, on any
// device, without the course seeing the student's identity directly.
func ClientToken(studentUserID uuid.UUID, courseCode string) string {
	return fmt.Sprintf("%s:%s", studentUserID, courseCode)
}
