// Package engine содержит ядро модели pipeline: загрузку и валидацию
// спецификаций, граф зависимостей jobs (DAG) и сопоставление событий
// с триггерами.
//
// Вся валидация выполняется при загрузке определения: некорректная
// спецификация (цикл зависимостей, неизвестный need, кривой паттерн
// ветки) — это DefinitionError, фатальная до начала любого выполнения
// и никогда не всплывающая в середине запуска.
package engine
