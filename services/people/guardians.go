package people

import (
	"context"
	"strings"
	"time"

	"schooldesk_go/apperrors"
	"schooldesk_go/models"
	"schooldesk_go/store"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// LinkGuardianLine attaches a LINE user to a student's guardian contact. The
// guardian proves the link with the student's username and date of birth.
func (s *Service) LinkGuardianLine(ctx context.Context, username string, dob time.Time, lineUserID string) (*models.Student, error) {
	lineUserID = strings.TrimSpace(lineUserID)
	if lineUserID == "" {
		return nil, apperrors.Validation("LINE user id is required")
	}
	mismatch := apperrors.New(apperrors.KindUnauthorized, "Student details do not match")
	user, err := s.repo.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, mismatch
		}
		return nil, apperrors.Internal(err, "failed to load user")
	}
	if user.Role != models.RoleStudent {
		return nil, mismatch
	}
	st, err := s.repo.GetStudentByUserID(ctx, user.ID)
	if err != nil {
		return nil, notFoundOr(err, "Student profile")
	}
	if st.DOB == nil || DefaultPassword(*st.DOB) != DefaultPassword(dob) {
		return nil, mismatch
	}
	st.GuardianLineID = lineUserID
	if err := s.repo.UpdateStudent(ctx, st); err != nil {
		return nil, apperrors.Internal(err, "failed to link guardian")
	}
	s.log.WithFields(logrus.Fields{"student_id": st.ID, "line_user": lineUserID}).Info("Guardian LINE account linked")
	return st, nil
}

// UnlinkGuardianLine clears the LINE user from every student it was linked to.
func (s *Service) UnlinkGuardianLine(ctx context.Context, lineUserID string) (int, error) {
	if lineUserID == "" {
		return 0, nil
	}
	students, err := s.repo.ListStudents(ctx, store.StudentQuery{})
	if err != nil {
		return 0, apperrors.Internal(err, "failed to list students")
	}
	n := 0
	for i := range students {
		if students[i].GuardianLineID != lineUserID {
			continue
		}
		students[i].GuardianLineID = ""
		if err := s.repo.UpdateStudent(ctx, &students[i]); err != nil {
			return n, apperrors.Internal(err, "failed to unlink guardian")
		}
		n++
	}
	if n > 0 {
		s.log.WithFields(logrus.Fields{"line_user": lineUserID, "students": n}).Info("Guardian LINE account unlinked")
	}
	return n, nil
}
