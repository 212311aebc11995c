package directory

import (
	"sort"

	"sharide/internal/repository"
)

// Schema maps each inference rule to the stored field it searches in one
// collection. Rules without a field of their own fall back to Default.
type Schema struct {
	Collection string
	// KeyField is the attribute holding the record's natural key.
	KeyField string
	Fields   map[Rule]string
	// Default is searched by RuleDefault and by any rule missing from Fields.
	Default string
}

// FieldFor returns the field searched for rule.
func (s Schema) FieldFor(rule Rule) string {
	if f, ok := s.Fields[rule]; ok && f != "" {
		return f
	}
	return s.Default
}

// Every collection defaults to "status", so an unrecognised query finds
// records in that state (e.g. "ACTIVE") rather than being treated as an id.
var schemas = map[string]Schema{
	repository.CollectionUsers: {
		Collection: repository.CollectionUsers,
		KeyField:   "firebaseUserId",
		Fields: map[Rule]string{
			RuleName:      "name",
			RuleNumericID: "icNumber",
			RuleEmail:     "email",
			RuleShortID:   "studentId",
		},
		Default: "status",
	},
	repository.CollectionDrivers: {
		Collection: repository.CollectionDrivers,
		KeyField:   "drivingId",
		Fields: map[Rule]string{
			RuleName:      "name",
			RuleNumericID: "drivingId",
			RulePlate:     "carPlate",
			RuleEmail:     "email",
			RuleShortID:   "studentId",
		},
		Default: "status",
	},
	repository.CollectionVehicles: {
		Collection: repository.CollectionVehicles,
		KeyField:   "registrationNumber",
		Fields: map[Rule]string{
			RuleName:      "model",
			RuleNumericID: "ownerDrivingId",
			RulePlate:     "registrationNumber",
			RuleEmail:     "ownerEmail",
		},
		Default: "status",
	},
	repository.CollectionAdmins: {
		Collection: repository.CollectionAdmins,
		KeyField:   "adminId",
		Fields: map[Rule]string{
			RuleName:    "name",
			RuleEmail:   "email",
			RuleShortID: "staffId",
		},
		Default: "status",
	},
	repository.CollectionAdminGroups: {
		Collection: repository.CollectionAdminGroups,
		KeyField:   "groupId",
		Fields: map[Rule]string{
			RuleName: "groupName",
		},
		Default: "status",
	},
}

// SchemaFor returns the schema of a searchable collection.
func SchemaFor(collection string) (Schema, bool) {
	s, ok := schemas[collection]
	return s, ok
}

// Collections lists the searchable collections in name order.
func Collections() []string {
	out := make([]string, 0, len(schemas))
	for name := range schemas {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
