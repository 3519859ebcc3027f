package people

import (
	"context"
	"testing"
	"time"

	"schooldesk_go/apperrors"
	"schooldesk_go/models"
	"schooldesk_go/store"
	"schooldesk_go/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dob() *time.Time {
	d := time.Date(2012, time.March, 7, 0, 0, 0, 0, time.UTC)
	return &d
}

func studentInput(name string) StudentInput {
	return StudentInput{Name: name, Class: "5", Section: "A", DOB: dob(), GuardianPhone: "98765 43210"}
}

func TestBaseUsernameAndDefaultPassword(t *testing.T) {
	assert.Equal(t, "asha_rao_5_A", BaseUsername("  Asha   Rao ", "5", "A"))
	assert.Equal(t, "07032012", DefaultPassword(*dob()))
}

func TestCreateStudentGeneratesAccount(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := NewService(mem, "91")

	st, creds, err := svc.CreateStudent(ctx, studentInput("Asha Rao"))
	require.NoError(t, err)
	assert.Equal(t, "asha_rao_5_A", creds.Username)
	assert.Equal(t, "07032012", creds.DefaultPassword)
	assert.Equal(t, "+919876543210", st.GuardianPhone)

	user, err := mem.GetUser(ctx, st.UserID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleStudent, user.Role)
	assert.Equal(t, "+919876543210", user.Phone)
	assert.NoError(t, utils.CheckPassword("07032012", user.Password))

	_, second, err := svc.CreateStudent(ctx, studentInput("Asha Rao"))
	require.NoError(t, err)
	assert.Equal(t, "asha_rao_5_A_1", second.Username)
	_, third, err := svc.CreateStudent(ctx, studentInput("Asha Rao"))
	require.NoError(t, err)
	assert.Equal(t, "asha_rao_5_A_2", third.Username)
}

func TestCreateStudentValidation(t *testing.T) {
	svc := NewService(store.NewMemory(), "91")
	ctx := context.Background()

	in := studentInput("Asha")
	in.DOB = nil
	_, _, err := svc.CreateStudent(ctx, in)
	assert.Equal(t, apperrors.KindValidationFailed, apperrors.KindOf(err))

	in = studentInput("Asha")
	in.GuardianPhone = "12345"
	_, _, err = svc.CreateStudent(ctx, in)
	assert.Equal(t, apperrors.KindValidationFailed, apperrors.KindOf(err))
}

func TestUpdateAndDeleteStudent(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := NewService(mem, "91")
	st, _, err := svc.CreateStudent(ctx, studentInput("Asha"))
	require.NoError(t, err)

	section := "B"
	badPhone := "abc"
	_, err = svc.UpdateStudent(ctx, st.ID, StudentUpdate{GuardianPhone: &badPhone})
	assert.Equal(t, apperrors.KindValidationFailed, apperrors.KindOf(err))

	phone := "09123456789"
	updated, err := svc.UpdateStudent(ctx, st.ID, StudentUpdate{Section: &section, GuardianPhone: &phone})
	require.NoError(t, err)
	assert.Equal(t, "B", updated.Section)
	assert.Equal(t, "+919123456789", updated.GuardianPhone)
	assert.Equal(t, "Asha", updated.Name)

	require.NoError(t, svc.DeleteStudent(ctx, st.ID))
	_, err = mem.GetUser(ctx, st.UserID)
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(svc.DeleteStudent(ctx, st.ID)))
}

func TestTeacherLifecycle(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := NewService(mem, "91")

	_, err := svc.CreateTeacher(ctx, TeacherInput{Name: "Meera"})
	assert.Equal(t, apperrors.KindValidationFailed, apperrors.KindOf(err))

	teacher, err := svc.CreateTeacher(ctx, TeacherInput{
		Name: "Meera", Username: "meera", Password: "secret1", Email: "Meera@School.in", Phone: "9876543210",
	})
	require.NoError(t, err)
	assert.Equal(t, "meera@school.in", teacher.Email)
	assert.Equal(t, "+919876543210", teacher.Phone)
	assert.Equal(t, "", teacher.AssignedClass)

	_, err = svc.CreateTeacher(ctx, TeacherInput{Name: "Other", Username: "meera", Password: "secret1"})
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))
	_, err = svc.CreateTeacher(ctx, TeacherInput{Name: "Other", Username: "other", Password: "secret1", Email: "meera@school.in"})
	assert.Equal(t, apperrors.KindConflict, apperrors.KindOf(err))

	email := "meera.k@school.in"
	updated, err := svc.UpdateTeacher(ctx, teacher.ID, TeacherUpdate{Email: &email})
	require.NoError(t, err)
	assert.Equal(t, email, updated.Email)
	user, err := mem.GetUser(ctx, teacher.UserID)
	require.NoError(t, err)
	assert.Equal(t, email, user.Email)

	assigned, err := svc.AssignClass(ctx, teacher.ID, ClassAssignmentInput{AssignedClass: "5", AssignedSection: "A"})
	require.NoError(t, err)
	assert.True(t, assigned.Teaches("5", "A"))

	require.NoError(t, svc.DeleteTeacher(ctx, teacher.ID))
	_, err = mem.GetUser(ctx, teacher.UserID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestTeacherScopedStudents(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := NewService(mem, "91")
	teacher, err := svc.CreateTeacher(ctx, TeacherInput{Name: "Meera", Username: "meera", Password: "secret1"})
	require.NoError(t, err)

	students, err := svc.TeacherStudents(ctx, teacher.UserID, "", "")
	require.NoError(t, err)
	assert.Empty(t, students)

	_, _, err = svc.TeacherCreateStudent(ctx, teacher.UserID, studentInput("Asha"))
	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(err))

	_, err = svc.AssignClass(ctx, teacher.ID, ClassAssignmentInput{AssignedClass: "5", AssignedSection: "A"})
	require.NoError(t, err)
	st, _, err := svc.TeacherCreateStudent(ctx, teacher.UserID, studentInput("Asha"))
	require.NoError(t, err)

	other := studentInput("Dev")
	other.Class = "6"
	outsider, _, err := svc.CreateStudent(ctx, other)
	require.NoError(t, err)

	students, err = svc.TeacherStudents(ctx, teacher.UserID, "", "")
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.Equal(t, st.ID, students[0].ID)

	assert.Equal(t, apperrors.KindForbidden, apperrors.KindOf(svc.TeacherDeleteStudent(ctx, teacher.UserID, outsider.ID)))
	assert.NoError(t, svc.TeacherDeleteStudent(ctx, teacher.UserID, st.ID))
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := NewService(mem, "91")
	teacher, err := svc.CreateTeacher(ctx, TeacherInput{Name: "Meera", Username: "meera", Password: "secret1"})
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, LoginInput{Username: "meera"})
	assert.Equal(t, apperrors.KindValidationFailed, apperrors.KindOf(err))

	_, err = svc.Authenticate(ctx, LoginInput{Username: "meera", Password: "wrong"})
	assert.Equal(t, apperrors.KindUnauthorized, apperrors.KindOf(err))

	user, err := svc.Authenticate(ctx, LoginInput{Username: "meera", Password: "secret1"})
	require.NoError(t, err)
	acc, err := svc.Account(ctx, user.ID)
	require.NoError(t, err)
	profile, ok := acc.Profile.(*models.Teacher)
	require.True(t, ok)
	assert.Equal(t, teacher.ID, profile.ID)

	_, err = svc.SetActive(ctx, user.ID, false)
	require.NoError(t, err)
	_, err = svc.Authenticate(ctx, LoginInput{Username: "meera", Password: "secret1"})
	assert.Equal(t, apperrors.KindUnauthorized, apperrors.KindOf(err))
	assert.EqualError(t, err, "Invalid credentials")
}

func TestListUsersAndEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	svc := NewService(mem, "91")
	require.NoError(t, svc.EnsureAdmin(ctx, "root", "changeme"))
	require.NoError(t, svc.EnsureAdmin(ctx, "root", "changeme"))
	_, _, err := svc.CreateStudent(ctx, studentInput("Asha"))
	require.NoError(t, err)

	all, err := svc.ListUsers(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, models.RoleAdmin, all[0].Role)

	students, err := svc.ListUsers(ctx, models.RoleStudent)
	require.NoError(t, err)
	require.Len(t, students, 1)
	assert.NotNil(t, students[0].Profile)

	_, err = svc.ListUsers(ctx, "janitor")
	assert.Equal(t, apperrors.KindValidationFailed, apperrors.KindOf(err))
}
