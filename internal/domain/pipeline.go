package domain

import (
	"time"

	"github.com/google/uuid"
)

// Pipeline — зарегистрированное определение CI/CD-пайплайна.
//
// Pipeline — это "рецепт" доставки: какие события его запускают
// и какие jobs в каком порядке выполняются. Одно определение может
// иметь множество версий (PipelineVersion); каждый запуск (Run)
// выполняет конкретную версию.
type Pipeline struct {
	// ID — уникальный идентификатор pipeline.
	ID uuid.UUID `json:"id"`

	// Name — уникальное имя pipeline (например, "frontend-ci", "backend-cd").
	Name string `json:"name"`

	// IsActive — флаг активности. Неактивные pipelines не реагируют на события.
	IsActive bool `json:"is_active"`

	// CreatedAt — время регистрации.
	CreatedAt time.Time `json:"created_at"`
}

// PipelineVersion — версия pipeline с конкретной спецификацией.
//
// Спецификация загружается один раз и неизменна в рамках запуска:
// все ошибки определения (циклы, неизвестные зависимости, кривые
// паттерны триггеров) обнаруживаются при регистрации версии,
// а не в середине выполнения.
type PipelineVersion struct {
	// PipelineID — ссылка на родительский pipeline.
	PipelineID uuid.UUID `json:"pipeline_id"`

	// Version — номер версии (1, 2, 3, ...), автоинкремент.
	Version int `json:"version"`

	// Spec — спецификация pipeline.
	Spec PipelineSpec `json:"spec"`

	// CreatedAt — время создания версии.
	CreatedAt time.Time `json:"created_at"`
}

// PipelineSpec — декларативное описание pipeline.
//
// Исходный формат — YAML-файл; через API принимается как JSON.
type PipelineSpec struct {
	// Name — имя pipeline (дублирует Pipeline.Name для удобства).
	Name string `json:"name,omitempty" yaml:"name,omitempty"`

	// Triggers — условия активации pipeline.
	// Pipeline запускается не более одного раза на событие,
	// даже если совпало несколько триггеров.
	Triggers []TriggerDef `json:"triggers" yaml:"triggers"`

	// Jobs — jobs пайплайна (имя → определение).
	// Граф зависимостей (needs) обязан быть ацикличным.
	Jobs map[string]JobDef `json:"jobs" yaml:"jobs"`
}

// TriggerDef — условие активации pipeline.
type TriggerDef struct {
	// Kind — вид события: pull_request, push, manual, schedule.
	Kind EventKind `json:"kind" yaml:"kind"`

	// Branch — glob-паттерн целевой ветки (например, "main", "release/*").
	// Пустой паттерн означает "любая ветка".
	Branch string `json:"branch,omitempty" yaml:"branch,omitempty"`

	// Paths — префиксные фильтры изменённых путей ("app/**", "starter/backend/**").
	// Пустой список — триггер срабатывает на любые пути.
	// Manual- и schedule-триггеры игнорируют пути.
	Paths []string `json:"paths,omitempty" yaml:"paths,omitempty"`

	// Cron — cron-выражение, только для kind=schedule.
	Cron string `json:"cron,omitempty" yaml:"cron,omitempty"`
}

// JobKind — вид job.
type JobKind string

const (
	// JobKindGate — гейтовый job (lint, test): его успех — предусловие
	// для downstream build/deploy jobs.
	JobKindGate JobKind = "gate"

	// JobKindBuild — собирает артефакт и публикует его в registry
	// с тегами {latest, <run-id>, <revision>}.
	JobKindBuild JobKind = "build"

	// JobKindDeploy — применяет опубликованный артефакт к deployment'у
	// через прогрессивную замену реплик.
	JobKindDeploy JobKind = "deploy"
)

// JobDef — определение job в спецификации pipeline.
type JobDef struct {
	// Kind — вид job: gate, build, deploy.
	Kind JobKind `json:"kind" yaml:"kind"`

	// Needs — имена jobs, от которых зависит этот job.
	// Job стартует только когда все зависимости SUCCEEDED;
	// если любая из них FAILED или SKIPPED — job становится SKIPPED.
	Needs []string `json:"needs,omitempty" yaml:"needs,omitempty"`

	// Steps — упорядоченный список шагов. Первый step с ненулевым
	// exit-статусом завершает job с FAILED, остальные steps не выполняются.
	Steps []StepDef `json:"steps,omitempty" yaml:"steps,omitempty"`

	// Env — переменные окружения для steps (включая инжектируемые секреты).
	Env map[string]string `json:"env,omitempty" yaml:"env,omitempty"`

	// Cache — кэш зависимостей, ключуемый content-хэшем манифеста.
	Cache *CacheDef `json:"cache,omitempty" yaml:"cache,omitempty"`

	// Artifact — для kind=build: источник содержимого артефакта;
	// для kind=deploy: имя артефакта, который выкатывается (Path не нужен).
	Artifact *ArtifactDef `json:"artifact,omitempty" yaml:"artifact,omitempty"`

	// Deployment — имя целевого deployment'а (только для kind=deploy).
	Deployment string `json:"deployment,omitempty" yaml:"deployment,omitempty"`
}

// StepDef — атомарная единица работы: shell-команда с exit-статусом.
type StepDef struct {
	// Name — имя шага (для логов и сообщений об ошибках).
	Name string `json:"name" yaml:"name"`

	// Run — shell-команда.
	Run string `json:"run" yaml:"run"`
}

// CacheDef — кэш зависимостей job.
//
// Ключ кэша — content-хэш файла-манифеста (package-lock.json,
// requirements.txt и т.п.), никогда не wall-clock время.
// В рамках запуска кэш только читается.
type CacheDef struct {
	// Manifest — путь к файлу-манифесту зависимостей.
	Manifest string `json:"manifest" yaml:"manifest"`
}

// ArtifactDef — откуда build job берёт содержимое артефакта.
type ArtifactDef struct {
	// Name — логическое имя артефакта (имя образа).
	Name string `json:"name" yaml:"name"`

	// Path — путь к файлу с собранным содержимым (результат steps).
	Path string `json:"path" yaml:"path"`
}

// HasScheduleTriggers возвращает true, если у спецификации есть schedule-триггеры.
func (s *PipelineSpec) HasScheduleTriggers() bool {
	for i := range s.Triggers {
		if s.Triggers[i].Kind == EventKindSchedule {
			return true
		}
	}
	return false
}

// JobNames возвращает имена всех jobs спецификации.
func (s *PipelineSpec) JobNames() []string {
	names := make([]string, 0, len(s.Jobs))
	for name := range s.Jobs {
		names = append(names, name)
	}
	return names
}
