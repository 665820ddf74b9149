package triage

import "strings"

// Office is one entry in the closed table of handling offices. Name and
// Description are used only to build routing and moderation prompts.
type Office struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Offices is the closed enumeration of handling offices. Order is stable and
// reflected in prompts and the offices API.
var Offices = []Office{
	{
		Code:        "FACILITIES",
		Name:        "Facilities Management Office",
		Description: "Buildings, grounds, lighting, plumbing, electrical faults, and general maintenance.",
	},
	{
		Code:        "SECURITY",
		Name:        "Campus Security Office",
		Description: "Theft, vandalism, trespassing, personal safety, and emergency response.",
	},
	{
		Code:        "STUDENT_AFFAIRS",
		Name:        "Office of Student Affairs",
		Description: "Student conduct, housing concerns, accessibility, and general campus life issues.",
	},
	{
		Code:        "IT_SERVICES",
		Name:        "IT Services Office",
		Description: "Network outages, lab equipment, account access, and campus systems.",
	},
	{
		Code:        "HEALTH_SAFETY",
		Name:        "Health and Safety Office",
		Description: "Injuries, hazardous materials, sanitation, and environmental health concerns.",
	},
}

// DefaultOffice receives reports that could not be routed.
var DefaultOffice = Offices[2] // Office of Student Affairs

// OfficeByCode looks up an office by its code, case-insensitively.
func OfficeByCode(code string) (Office, bool) {
	code = strings.ToUpper(strings.TrimSpace(code))
	for _, o := range Offices {
		if o.Code == code {
			return o, true
		}
	}
	return Office{}, false
}

// OfficeNames returns the full names of all offices, in table order.
func OfficeNames() []string {
	out := make([]string, len(Offices))
	for i, o := range Offices {
		out[i] = o.Name
	}
	return out
}
