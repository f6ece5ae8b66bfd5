// Package cli реализует инструмент командной строки Conveyor.
//
// # Обзор
//
// CLI — клиентская утилита для взаимодействия с Conveyor API.
// Работает через HTTP, не импортирует внутренние пакеты системы.
// CLI используется для управления pipelines, runs, schedules
// и deployments, а также для отправки событий.
//
// # Ключевые компоненты
//
// ## Client
//
// HTTP-клиент для Conveyor API. Инкапсулирует все HTTP-запросы,
// парсинг ответов (DataResponse, ListResponse, ErrorResponse)
// и обработку ошибок.
//
//	client := cli.NewClient("http://localhost:8080")
//	pipelines, err := client.ListPipelines()
//
// ## Output
//
// Форматирование вывода. Поддерживает два режима:
//   - Таблицы (text/tabwriter) — по умолчанию
//   - JSON (json.MarshalIndent) — с флагом --json
//
// Данные выводятся в stdout, сообщения (Success/Error) — в stderr.
// Это позволяет использовать pipe: conveyor pipeline list --json | jq .
//
// ## Commands
//
// Cobra-команды организованы по ресурсам:
//   - pipeline: list, create, show, update, delete, versions, register
//   - run: list, start, show, watch, cancel, jobs
//   - schedule: list, show, enable, disable
//   - deploy: show, history, rollback
//   - event: submit
//
// Спецификация pipeline пишется в YAML; register конвертирует её
// в JSON перед отправкой, полная валидация выполняется на сервере.
// run watch дожидается финального статуса и возвращает ненулевой
// exit code, если run не SUCCEEDED — удобно для CI-обвязки.
//
// Каждая группа создаётся через фабричную функцию (NewPipelineCmd
// и т.д.), принимающую clientFn и outputFn — замыкания для ленивого
// создания Client и Output после парсинга PersistentFlags.
package cli
