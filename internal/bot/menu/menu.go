package menu

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/learning-platform-bot/internal/models"
)

// Тексты кнопок главного меню; диспетчер сравнивает с ними входящий текст.
const (
	BtnCourses       = "📚 المواد الدراسية"
	BtnMyProgress    = "📈 تقدمي"
	BtnAttempts      = "📝 نتائج الاختبارات"
	BtnSubscriptions = "💳 اشتراكاتي"
	BtnSubscribe     = "🛒 طلب اشتراك"
	BtnRedeem        = "🎟 تفعيل كود"
	BtnVideoCourses  = "🎬 الكورسات"

	BtnRequests = "📥 طلبات الاشتراك"
	BtnCodes    = "🔑 إنشاء أكواد"
	BtnReports  = "📊 التقارير"
	BtnUnits    = "🗂 إدارة الوحدات"
)

// GetRoleMenu возвращает меню в зависимости от роли пользователя
func GetRoleMenu(role models.Role) tgbotapi.ReplyKeyboardMarkup {
	switch role {
	case models.Student, models.Teacher:
		return studentMenu()
	case models.Admin, models.Supervisor:
		return adminMenu()
	default:
		return tgbotapi.NewReplyKeyboard() // пустое меню
	}
}

func studentMenu() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnCourses),
			tgbotapi.NewKeyboardButton(BtnMyProgress),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnAttempts),
			tgbotapi.NewKeyboardButton(BtnVideoCourses),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnSubscriptions),
			tgbotapi.NewKeyboardButton(BtnSubscribe),
			tgbotapi.NewKeyboardButton(BtnRedeem),
		),
	)
}

func adminMenu() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnCourses),
			tgbotapi.NewKeyboardButton(BtnVideoCourses),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnRequests),
			tgbotapi.NewKeyboardButton(BtnCodes),
		),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton(BtnReports),
			tgbotapi.NewKeyboardButton(BtnUnits),
		),
	)
}
