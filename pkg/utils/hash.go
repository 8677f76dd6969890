package utils

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"

	"github.com/postvault/postvault/internal/models"
)

// snapshotHashDomain namespaces the content hash; the null separator keeps
// the domain/data boundary unambiguous.
const snapshotHashDomain = "postvault/snapshot/v1"

// SnapshotHash returns a stable hash over the sync-relevant fields of a
// snapshot. Volatile fields (exportedAt, version) are excluded so that
// re-importing a merged snapshot does not look like a fresh local change.
func SnapshotHash(s *models.Snapshot) string {
	if s == nil {
		return ""
	}

	drafts := append([]models.Draft{}, s.Drafts...)
	sort.Slice(drafts, func(i, j int) bool { return drafts[i].ID < drafts[j].ID })
	slots := append([]models.ScheduleSlot{}, s.ScheduleSlots...)
	sort.Slice(slots, func(i, j int) bool { return slots[i].ID < slots[j].ID })
	templates := append([]models.Template{}, s.Templates...)
	sort.Slice(templates, func(i, j int) bool { return templates[i].ID < templates[j].ID })

	relevant := struct {
		Drafts          []models.Draft        `json:"drafts"`
		ScheduleSlots   []models.ScheduleSlot `json:"scheduleSlots"`
		Templates       []models.Template     `json:"templates"`
		DefaultTemplate *models.Template      `json:"defaultTemplate"`
		DeletedIDs      models.DeletedIDs     `json:"deletedIds"`
	}{drafts, slots, templates, s.DefaultTemplate, s.DeletedIDs}

	data, err := json.Marshal(relevant)
	if err != nil {
		return ""
	}

	h := sha256.New()
	h.Write([]byte(snapshotHashDomain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}
