// Package orchestrator реализует центральный компонент выполнения runs.
//
// Orchestrator получает pending runs (событийно из RabbitMQ и через
// polling fallback), строит DAG jobs, раздаёт готовые jobs воркерам,
// отслеживает завершения и финализирует run:
//
//   - отказ job'а транзитивно пропускает его downstream (SKIPPED);
//   - более новый run той же ветки вытесняет устаревшие in-flight runs;
//   - run завершается успехом, только если ни один job не FAILED.
package orchestrator
