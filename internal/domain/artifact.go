package domain

import "time"

// TagLatest — единственный изменяемый тег registry: всегда указывает
// на содержимое последней успешной сборки. Остальные теги (run-id,
// revision) неизменяемы: однажды назначенные, они никогда не
// перенацеливаются на другое содержимое.
const TagLatest = "latest"

// Artifact — опубликованный результат успешного build job.
//
// Содержимое идентифицируется неизменяемым content-ref (digest);
// все теги одной сборки указывают на одно и то же содержимое.
type Artifact struct {
	// Name — логическое имя артефакта.
	Name string `json:"name"`

	// Digest — неизменяемая ссылка на содержимое (sha256-дайджест).
	Digest string `json:"digest"`

	// Tags — назначенные теги: {latest, <run-id>, <revision>}.
	Tags []string `json:"tags"`

	// PushedAt — время подтверждённой публикации содержимого.
	PushedAt time.Time `json:"pushed_at"`
}

// RolloutRecord — запись истории применённых к deployment'у артефактов.
//
// Упорядоченная история поддерживает Rollback: откат к стабильной
// ссылке, предшествующей последнему Deploy. Застрявшие rollout'ы тоже
// записываются (со State=STALLED), чтобы откат из смешанного состояния
// видел, какая ссылка была стабильной до них.
type RolloutRecord struct {
	// Deployment — имя deployment'а.
	Deployment string `json:"deployment"`

	// Ref — целевая ссылка на артефакт (digest).
	Ref string `json:"ref"`

	// State — итог rollout'а: STABLE или STALLED.
	State RolloutState `json:"state"`

	// AppliedAt — время завершения rollout'а.
	AppliedAt time.Time `json:"applied_at"`
}
