package domain

import (
	"encoding/json"
	"fmt"
	"strconv"
)

// Well-known contact property names. HubSpot and the front end both depend on
// these exact spellings.
const (
	PropFirstName = "firstname"
	PropLastName  = "lastname"
	PropEmail     = "email"
	PropJobTitle  = "jobtitle"
	PropCompany   = "company"
	PropPhone     = "phone"
	PropAddress   = "address"
)

// Well-known deal property names.
const (
	PropDealName  = "dealname"
	PropAmount    = "amount"
	PropDealStage = "dealstage"
	PropCloseDate = "closedate"
	PropPipeline  = "pipeline"
)

// ContactProperties is the fixed property list requested when listing contacts.
var ContactProperties = []string{
	PropFirstName, PropLastName, PropEmail, PropPhone, PropAddress, PropJobTitle, PropCompany,
}

// DealProperties is the fixed property list requested when reading deals.
var DealProperties = []string{
	PropDealName, PropAmount, PropDealStage, PropCloseDate, PropPipeline,
}

// Properties is an open-ended property bag. Keys the account owner added in
// HubSpot pass through untouched.
type Properties map[string]any

// String returns the value stored under key rendered as a string. Missing and
// null values yield "".
func (p Properties) String(key string) string {
	v, ok := p[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

// FirstName returns the firstname property.
func (p Properties) FirstName() string { return p.String(PropFirstName) }

// LastName returns the lastname property.
func (p Properties) LastName() string { return p.String(PropLastName) }

// Email returns the email property.
func (p Properties) Email() string { return p.String(PropEmail) }

// JobTitle returns the jobtitle property.
func (p Properties) JobTitle() string { return p.String(PropJobTitle) }

// DealName returns the dealname property.
func (p Properties) DealName() string { return p.String(PropDealName) }

// Amount returns the deal amount as the decimal string HubSpot stores.
func (p Properties) Amount() string { return p.String(PropAmount) }

// DealStage returns the dealstage property.
func (p Properties) DealStage() string { return p.String(PropDealStage) }

// Object is a CRM record (contact or deal) as HubSpot returns it.
type Object struct {
	ID         string     `json:"id"`
	Properties Properties `json:"properties"`
	CreatedAt  string     `json:"createdAt,omitempty"`
	UpdatedAt  string     `json:"updatedAt,omitempty"`
	Archived   bool       `json:"archived"`
}

// Contact and Deal share HubSpot's object shape.
type (
	Contact = Object
	Deal    = Object
)
