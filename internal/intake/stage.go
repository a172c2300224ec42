package intake

import "strings"

// Stage is the position of a sender inside the guided flow.
type Stage int

const (
	StageMenu Stage = iota
	StageName
	StageFather
	StageDOB
	StagePhone
	StageEmail
	StageVillage
	StagePostOffice
	StagePoliceStation
	StageDistrict
	StagePincode
	StageFraud
	StageDesc
	StageStatus
	StageUnfreeze
)

var stageNames = [...]string{
	StageMenu:          "menu",
	StageName:          "name",
	StageFather:        "father",
	StageDOB:           "dob",
	StagePhone:         "phone",
	StageEmail:         "email",
	StageVillage:       "village",
	StagePostOffice:    "post_office",
	StagePoliceStation: "police_station",
	StageDistrict:      "district",
	StagePincode:       "pincode",
	StageFraud:         "fraud",
	StageDesc:          "desc",
	StageStatus:        "status",
	StageUnfreeze:      "unfreeze",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return "unknown"
	}
	return stageNames[s]
}

func (s Stage) valid() bool {
	return s >= StageMenu && s <= StageUnfreeze
}

// Keys of Session.Fields.
const (
	FieldName          = "name"
	FieldFatherName    = "father_name"
	FieldDOB           = "dob"
	FieldPhone         = "phone"
	FieldEmail         = "email"
	FieldVillage       = "village"
	FieldPostOffice    = "post_office"
	FieldPoliceStation = "police_station"
	FieldDistrict      = "district"
	FieldPincode       = "pincode"
	FieldFraudCategory = "fraud_category"
	FieldDescription   = "description"
)

// fieldStep describes a stage that collects one field and advances.
type fieldStep struct {
	field    string
	next     Stage
	validate func(string) bool
	reject   string
}

// fieldSteps is the transition table for the form stages. Stages absent
// from this table (menu, fraud, desc, status, unfreeze) are handled
// explicitly by the machine.
var fieldSteps = map[Stage]fieldStep{
	StageName:          {field: FieldName, next: StageFather},
	StageFather:        {field: FieldFatherName, next: StageDOB},
	StageDOB:           {field: FieldDOB, next: StagePhone, validate: ValidDOB, reject: msgInvalidDOB},
	StagePhone:         {field: FieldPhone, next: StageEmail, validate: ValidPhone, reject: msgInvalidPhone},
	StageEmail:         {field: FieldEmail, next: StageVillage, validate: ValidEmail, reject: msgInvalidEmail},
	StageVillage:       {field: FieldVillage, next: StagePostOffice},
	StagePostOffice:    {field: FieldPostOffice, next: StagePoliceStation},
	StagePoliceStation: {field: FieldPoliceStation, next: StageDistrict},
	StageDistrict:      {field: FieldDistrict, next: StagePincode},
	StagePincode:       {field: FieldPincode, next: StageFraud, validate: ValidPincode, reject: msgInvalidPincode},
}

var menuChoices = map[string]Stage{
	"a": StageName,
	"b": StageStatus,
	"c": StageUnfreeze,
}

// Fraud category labels offered at the fraud stage.
const (
	CategoryUPIBanking  = "UPI/Banking"
	CategorySocialMedia = "Social Media"
	CategoryLoanApp     = "Loan App / Extortion"
	CategoryOther       = "Other"
)

var fraudChoices = map[string]string{
	"1": CategoryUPIBanking,
	"2": CategorySocialMedia,
	"3": CategoryLoanApp,
	"4": CategoryOther,
}

// FraudCategory resolves a numeric menu choice, defaulting to Other.
func FraudCategory(choice string) string {
	if label, ok := fraudChoices[strings.TrimSpace(choice)]; ok {
		return label
	}
	return CategoryOther
}
