// Package mq предоставляет инфраструктуру для работы с RabbitMQ.
//
// Структура:
//   - connection.go — управление соединением с RabbitMQ (reconnect, graceful shutdown)
//   - topology.go   — объявление exchanges, queues, bindings
//   - publisher.go  — публикация сообщений в очереди
//   - consumer.go   — потребление сообщений из очередей
//
// Типы сообщений:
//   - run.pending    — новый run ожидает обработки оркестратором
//   - job.ready      — job готов к выполнению воркером
//   - job.completed  — job завершён
//
// Exchanges:
//   - conveyor.runs — события runs
//   - conveyor.jobs — события jobs
//   - conveyor.dlq  — dead letter queue
package mq
