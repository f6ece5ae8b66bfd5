// Package worker реализует исполнителя jobs.
//
// Worker — stateless компонент: получает готовые jobs из очереди
// (и через polling fallback), выполняет их согласно виду (gate, build,
// deploy) и публикует результат в jobs.completed. Несколько экземпляров
// могут потреблять из одной очереди.
//
// Steps job'а выполняются строго последовательно; первый step
// с ненулевым exit-статусом завершает job с FAILED.
package worker
