package models

// Notice задание на уведомление пользователя об изменении статуса подписки.
// Публикуется сканером, потребляется сервисом уведомлений на стороне бота.
type Notice struct {
	UserID   string `json:"user_id"`
	EndDate  string `json:"end_date"`  // Строка в формате хранилища, попадает в текст сообщения
	DaysLeft int    `json:"days_left"` // Порог предупреждения или 0 для истёкшей подписки
}

// Revocation задание на исключение пользователя из закрытой группы.
// Публикуется обработчиком очереди удаления после удаления записи.
type Revocation struct {
	UserID string `json:"user_id"`
}
