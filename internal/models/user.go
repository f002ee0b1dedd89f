// Package models содержит доменные структуры записей о подписчиках и
// очереди удаления, а также их сетевые представления для хранилища.
// Даты в хранилище лежат строками в фиксированном часовом поясе,
// поэтому для каждой структуры есть "сырая" пара с полями-строками.
package models

import (
	"fmt"
	"time"

	"github.com/go-playground/validator"

	"github.com/streamtap/subscription-keeper/internal/lib/datefmt"
)

// NotifyState отметка об уже отправленном уведомлении.
// Переходы только вперёд: none -> soon -> expired.
type NotifyState string

const (
	// NotifiedNone уведомлений ещё не было.
	NotifiedNone NotifyState = ""
	// NotifiedSoon отправлено предупреждение о скором окончании.
	NotifiedSoon NotifyState = "soon"
	// NotifiedExpired отправлено уведомление об окончании подписки.
	NotifiedExpired NotifyState = "expired"
)

// User представляет запись о подписчике в бизнес-логике.
type User struct {
	ID        string      // Telegram ID пользователя строкой, ключ записи
	StartDate time.Time   // Начало оплаченного периода
	EndDate   time.Time   // Конец оплаченного периода, не раньше начала
	ExtraDays int         // Сколько бонусных дней суммарно начислено
	Notified  NotifyState // Отметка об отправленных уведомлениях
}

// RawUser сетевое представление записи о подписчике в хранилище.
// Поле notified отсутствует в JSON, пока уведомлений не было.
type RawUser struct {
	StartDate string `json:"start_date" validate:"required"` // Дата начала
	EndDate   string `json:"end_date" validate:"required"`   // Дата окончания
	ExtraDays int    `json:"extra_days"`                     // Бонусные дни
	Notified  string `json:"notified,omitempty"`             // "soon"|"expired"
}

// RemovalEntry представляет пользователя, ожидающего удаления.
type RemovalEntry struct {
	UserID   string    // Telegram ID пользователя строкой, ключ записи
	QueuedAt time.Time // Момент, когда истечение было обнаружено
}

// RawRemovalEntry сетевое представление элемента очереди удаления.
type RawRemovalEntry struct {
	Timestamp string `json:"timestamp" validate:"required"` // Момент постановки в очередь
}

var validate = validator.New()

// ToUser валидирует сырую запись и превращает её в доменную.
// Любая ошибка означает повреждённую запись: вызывающий обязан
// пропустить её с предупреждением, не прерывая обход остальных.
func (r RawUser) ToUser(id string, loc *time.Location) (User, error) {
	if err := validate.Struct(r); err != nil {
		return User{}, fmt.Errorf("models.RawUser: %w", err)
	}
	start, err := datefmt.Parse(r.StartDate, loc)
	if err != nil {
		return User{}, fmt.Errorf("models.RawUser: bad start_date: %w", err)
	}
	end, err := datefmt.Parse(r.EndDate, loc)
	if err != nil {
		return User{}, fmt.Errorf("models.RawUser: bad end_date: %w", err)
	}
	switch NotifyState(r.Notified) {
	case NotifiedNone, NotifiedSoon, NotifiedExpired:
	default:
		return User{}, fmt.Errorf("models.RawUser: unknown notified value %q", r.Notified)
	}
	return User{
		ID:        id,
		StartDate: start,
		EndDate:   end,
		ExtraDays: r.ExtraDays,
		Notified:  NotifyState(r.Notified),
	}, nil
}

// ToRaw формирует сетевое представление доменной записи.
func (u User) ToRaw(loc *time.Location) RawUser {
	return RawUser{
		StartDate: datefmt.Format(u.StartDate, loc),
		EndDate:   datefmt.Format(u.EndDate, loc),
		ExtraDays: u.ExtraDays,
		Notified:  string(u.Notified),
	}
}

// ToEntry валидирует сырой элемент очереди удаления.
func (r RawRemovalEntry) ToEntry(id string, loc *time.Location) (RemovalEntry, error) {
	if err := validate.Struct(r); err != nil {
		return RemovalEntry{}, fmt.Errorf("models.RawRemovalEntry: %w", err)
	}
	ts, err := datefmt.Parse(r.Timestamp, loc)
	if err != nil {
		return RemovalEntry{}, fmt.Errorf("models.RawRemovalEntry: bad timestamp: %w", err)
	}
	return RemovalEntry{UserID: id, QueuedAt: ts}, nil
}

// ToRaw формирует сетевое представление элемента очереди удаления.
func (e RemovalEntry) ToRaw(loc *time.Location) RawRemovalEntry {
	return RawRemovalEntry{Timestamp: datefmt.Format(e.QueuedAt, loc)}
}
