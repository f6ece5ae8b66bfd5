// Package registry реализует артефакт-registry: content-addressable
// хранилище с тегами.
//
// Содержимое публикуется push'ем и получает неизменяемый content-ref
// (sha256-дайджест). Теги указывают на content-ref; все теги, кроме
// "latest", неизменяемы. Publisher гарантирует атомарность публикации:
// сначала push содержимого, затем назначение тегов — неудавшийся push
// не оставляет следов в registry.
package registry
