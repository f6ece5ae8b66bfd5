// Package api реализует HTTP API системы.
//
// Внешняя поверхность:
//   - регистрация pipelines и их версий
//   - приём событий (POST /api/v1/events) — Trigger Evaluator
//   - ручной запуск, просмотр и отмена runs
//   - управление schedules
//   - состояние deployments и явный rollback
//
// Используется стандартный net/http ServeMux (Go 1.22 method patterns)
// с middleware для логирования и recovery.
package api
