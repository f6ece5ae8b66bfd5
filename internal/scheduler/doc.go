// Package scheduler реализует запуск pipelines по расписанию.
//
// Scheduler периодически проверяет schedules с истекшим next_due_at
// и создаёт runs с событием kind=schedule. Дубликаты исключаются
// ключом идемпотентности "{schedule_id}_{next_due_at_unix}".
//
// Структура:
//   - scheduler.go — основная логика (Tick, processSchedule)
//   - cron.go      — парсинг cron-выражений и вычисление следующего времени
//
// Leader Election:
//
// Scheduler не реализует leader election самостоятельно.
// Это делается в main.go через pg_try_advisory_lock.
// Метод Tick() вызывается только лидером.
package scheduler
