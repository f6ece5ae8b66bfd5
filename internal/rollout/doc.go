// Package rollout реализует прогрессивную выкатку артефактов
// на deployment'ы.
//
// Controller заменяет реплики по одной: поднимает новую, дожидается
// её готовности в пределах бюджета повторов, и только затем гасит
// одну старую. Деградация готовности останавливает выкатку в
// состоянии STALLED — автоматического отката нет, Rollback выполняется
// только явной командой и применяет предыдущую запись истории тем же
// прогрессивным циклом.
package rollout
