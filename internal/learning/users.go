package learning

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Spok95/learning-platform-bot/internal/db"
	"github.com/Spok95/learning-platform-bot/internal/events"
	"github.com/Spok95/learning-platform-bot/internal/models"
	"github.com/Spok95/learning-platform-bot/internal/validation"
)

type RegisterInput struct {
	TelegramID  *int64  `json:"-"`
	AuthSubject *string `json:"-"`
	Name        string  `json:"name" validate:"required,notblank,min=3,max=100"`
	Phone       string  `json:"phone" validate:"required,phone_eg"`
	Email       string  `json:"email" validate:"omitempty,email"`
	GradeID     int64   `json:"grade_id" validate:"required,gt=0"`
	Track       string  `json:"track" validate:"required,track"`
}

// Register: регистрация ученика. Ошибки ввода возвращаются до обращения к БД.
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.User, error) {
	if err := validation.Check(in); err != nil {
		return nil, err
	}
	if in.TelegramID == nil && in.AuthSubject == nil {
		return nil, errors.New("register: no identity")
	}
	if _, err := db.GetGrade(ctx, s.db, in.GradeID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, validation.Field("grade_id", "الصف غير موجود")
		}
		return nil, fmt.Errorf("get grade: %w", err)
	}
	u := models.User{
		TelegramID:     in.TelegramID,
		AuthSubject:    in.AuthSubject,
		Name:           strings.TrimSpace(in.Name),
		Phone:          validation.NormalizePhone(in.Phone),
		GradeID:        &in.GradeID,
		Track:          models.Track(in.Track),
		AllowedDevices: s.defaultDevices,
	}
	if email := strings.TrimSpace(in.Email); email != "" {
		u.Email = &email
	}
	created, err := db.CreateUser(ctx, s.db, u)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

func (s *Service) UserByTelegramID(ctx context.Context, telegramID int64) (*models.User, error) {
	return db.GetUserByTelegramID(ctx, s.db, telegramID)
}

func (s *Service) UserBySubject(ctx context.Context, subject string) (*models.User, error) {
	return db.GetUserByAuthSubject(ctx, s.db, subject)
}

func (s *Service) UserByID(ctx context.Context, id int64) (*models.User, error) {
	return db.GetUserByID(ctx, s.db, id)
}

// EnsureAdmin: повышает до админа chatID из списка ADMIN_IDS.
func (s *Service) EnsureAdmin(ctx context.Context, adminIDs []int64, chatID int64, name string) error {
	changed, err := db.EnsureAdmin(ctx, s.db, adminIDs, chatID, name)
	if err != nil {
		return fmt.Errorf("ensure admin: %w", err)
	}
	if changed {
		s.log.Info("admin ensured", zap.Int64("chat_id", chatID))
	}
	return nil
}

// RegisterDevice: учёт X-Device-ID; сверх лимита, db.ErrDeviceLimit.
func (s *Service) RegisterDevice(ctx context.Context, user models.User, deviceID string) error {
	deviceID = strings.TrimSpace(deviceID)
	if deviceID == "" {
		return nil
	}
	for _, d := range user.DeviceIDs {
		if d == deviceID {
			return nil
		}
	}
	return db.RegisterDevice(ctx, s.db, user.ID, deviceID)
}

func (s *Service) ResetDevices(ctx context.Context, admin models.User, userID int64) error {
	if err := requireStaff(admin); err != nil {
		return err
	}
	return db.ResetDevices(ctx, s.db, userID)
}

// DeleteAccount: самоудаление либо удаление админом.
func (s *Service) DeleteAccount(ctx context.Context, actor models.User, userID int64) error {
	if actor.ID != userID {
		if err := requireStaff(actor); err != nil {
			return err
		}
	}
	if err := db.DeleteUser(ctx, s.db, userID); err != nil {
		return err
	}
	s.log.Info("account deleted", zap.Int64("user_id", userID), zap.Int64("actor_id", actor.ID))
	return nil
}

// ProfileInput: правки профиля самим пользователем.
type ProfileInput struct {
	Name    string `json:"name" validate:"required,notblank,min=3,max=100"`
	Phone   string `json:"phone" validate:"required,phone_eg"`
	Email   string `json:"email" validate:"omitempty,email"`
	GradeID int64  `json:"grade_id" validate:"required,gt=0"`
	Track   string `json:"track" validate:"required,track"`
}

func (s *Service) UpdateProfile(ctx context.Context, user models.User, in ProfileInput) (*models.User, error) {
	if err := validation.Check(in); err != nil {
		return nil, err
	}
	if _, err := db.GetGrade(ctx, s.db, in.GradeID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, validation.Field("grade_id", "الصف غير موجود")
		}
		return nil, fmt.Errorf("get grade: %w", err)
	}
	u := user
	u.Name = strings.TrimSpace(in.Name)
	u.Phone = validation.NormalizePhone(in.Phone)
	u.GradeID = &in.GradeID
	u.Track = models.Track(in.Track)
	u.Email = nil
	if email := strings.TrimSpace(in.Email); email != "" {
		u.Email = &email
	}
	if err := db.UpdateProfile(ctx, s.db, u); err != nil {
		return nil, err
	}
	// смена класса или профиля меняет видимость юнитов
	s.publish(events.TopicProgress, u.ID, 0)
	return &u, nil
}

// SetRole: назначение роли. Выдавать роль админа может только админ.
func (s *Service) SetRole(ctx context.Context, admin models.User, userID int64, role models.Role) error {
	if err := requireStaff(admin); err != nil {
		return err
	}
	switch role {
	case models.Student, models.Teacher, models.Supervisor:
	case models.Admin:
		if admin.Role != models.Admin {
			return ErrForbidden
		}
	default:
		return validation.Field("role", "دور غير معروف")
	}
	if err := db.SetUserRole(ctx, s.db, userID, role); err != nil {
		return err
	}
	s.log.Info("role changed", zap.Int64("user_id", userID), zap.String("role", string(role)), zap.Int64("actor_id", admin.ID))
	return nil
}

// SetActive: блокировка/разблокировка аккаунта; себя заблокировать нельзя.
func (s *Service) SetActive(ctx context.Context, admin models.User, userID int64, active bool) error {
	if err := requireStaff(admin); err != nil {
		return err
	}
	if admin.ID == userID && !active {
		return validation.Field("user_id", "لا يمكنك إيقاف حسابك")
	}
	if err := db.SetUserActive(ctx, s.db, userID, active); err != nil {
		return err
	}
	s.log.Info("account active changed", zap.Int64("user_id", userID), zap.Bool("active", active), zap.Int64("actor_id", admin.ID))
	return nil
}
