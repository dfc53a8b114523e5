package dashboard

import (
	"fmt"
	"strings"

	"github.com/yildizm/AttendSum/internal/common"
)

// Field is one level of the district, school, grade cascade
type Field string

const (
	FieldDistrict Field = "district"
	FieldSchool   Field = "school"
	FieldGrade    Field = "grade"
)

// ParseField validates a field name
func ParseField(s string) (Field, error) {
	switch Field(strings.ToLower(strings.TrimSpace(s))) {
	case FieldDistrict:
		return FieldDistrict, nil
	case FieldSchool:
		return FieldSchool, nil
	case FieldGrade:
		return FieldGrade, nil
	}
	return "", fmt.Errorf("unknown filter field %q", s)
}

// Filters is the current selection. School only means something with a
// district, grade only with a school.
type Filters struct {
	District string `json:"district"`
	School   string `json:"school"`
	Grade    string `json:"grade"`
}

// Set returns f with field changed. Changing a level always clears the
// levels below it.
func (f Filters) Set(field Field, value string) (Filters, error) {
	switch field {
	case FieldDistrict:
		return Filters{District: value}, nil
	case FieldSchool:
		return Filters{District: f.District, School: value}, nil
	case FieldGrade:
		f.Grade = value
		return f, nil
	}
	return f, fmt.Errorf("unknown filter field %q", field)
}

// Reset returns empty filters
func (f Filters) Reset() Filters {
	return Filters{}
}

// IsEmpty reports whether nothing is selected
func (f Filters) IsEmpty() bool {
	return f.District == "" && f.School == "" && f.Grade == ""
}

// Criteria converts the selection into backend search criteria
func (f Filters) Criteria() common.Criteria {
	return common.BuildCriteria(f.District, f.School, f.Grade)
}

// Options holds the selectable values. Schools and Grades are the lists for
// the current selection; AllSchools and AllGrades are the full cached
// lists they are narrowed from.
type Options struct {
	Districts  []common.Option `json:"districts"`
	Schools    []common.Option `json:"schools"`
	Grades     []common.Option `json:"grades"`
	AllSchools []common.Option `json:"-"`
	AllGrades  []common.Option `json:"-"`
}

// NormalizeDistricts strips "D" prefixes from district values
func NormalizeDistricts(opts []common.Option) []common.Option {
	out := make([]common.Option, len(opts))
	for i, o := range opts {
		o.Value = common.DistrictCode(o.Value)
		out[i] = o
	}
	return out
}

// NarrowSchools filters the cached school list to district. With no
// district the whole list is returned.
func (o Options) NarrowSchools(district string) []common.Option {
	if district == "" {
		return append([]common.Option(nil), o.AllSchools...)
	}
	want := common.DistrictCode(district)
	var out []common.Option
	for _, s := range o.AllSchools {
		if common.DistrictCode(s.District) == want {
			out = append(out, s)
		}
	}
	return out
}

// HasSchoolsFor reports whether schools for district can be narrowed
// without a fetch
func (o Options) HasSchoolsFor(district string) bool {
	return len(o.NarrowSchools(district)) > 0
}

// NarrowGrades filters the cached grade list to school. With no school
// there are no grades to pick.
func (o Options) NarrowGrades(school string) []common.Option {
	if school == "" {
		return nil
	}
	code := common.SchoolCode(school)
	var out []common.Option
	for _, g := range o.AllGrades {
		if g.School == school || (g.School != "" && common.SchoolCode(g.School) == code) {
			out = append(out, g)
		}
	}
	return out
}

// HasGradesFor reports whether grades for school can be narrowed without
// a fetch
func (o Options) HasGradesFor(school string) bool {
	return len(o.NarrowGrades(school)) > 0
}

// Label returns the display label of value in opts, or value itself
func Label(opts []common.Option, value string) string {
	for _, o := range opts {
		if o.Value == value {
			return o.Label
		}
	}
	return value
}
