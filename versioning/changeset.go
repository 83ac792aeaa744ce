package versioning

// Change - один шаг: скрипт, переводящий базу из версии Version в Version+Step.
type Change struct {
	Version VersionNumber
	Script  Script
}

// Changeset - упорядоченные шаги от Start до End. При обновлении версии
// возрастают, при откате убывают.
type Changeset struct {
	Start   VersionNumber
	End     VersionNumber
	Step    Direction
	Changes []Change
}

func NewChangeset(start VersionNumber, step Direction, scripts ...Script) *Changeset {
	cs := &Changeset{Start: start, End: start, Step: step}
	for _, s := range scripts {
		cs.Add(s)
	}
	return cs
}

// Add добавляет следующий шаг. Его ключ - текущий конец.
func (c *Changeset) Add(s Script) {
	c.Changes = append(c.Changes, Change{Version: c.End, Script: s})
	c.End += VersionNumber(c.Step)
}

func (c *Changeset) Len() int {
	return len(c.Changes)
}

func (c *Changeset) Empty() bool {
	return len(c.Changes) == 0
}

// Versions возвращает начальные версии шагов по порядку.
func (c *Changeset) Versions() []VersionNumber {
	out := make([]VersionNumber, len(c.Changes))
	for i, ch := range c.Changes {
		out[i] = ch.Version
	}
	return out
}
