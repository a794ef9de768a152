package service

import (
	"myinstanceserver/domain"
	"myinstanceserver/helpers"
	"myinstanceserver/interfaces"
)

// Records bundles the record stores the instance server reads and writes.
type Records struct {
	Instances         interfaces.RecordStore[domain.InstanceRecord]
	Locations         interfaces.RecordStore[domain.Location]
	Channels          interfaces.RecordStore[domain.Channel]
	Users             interfaces.RecordStore[domain.User]
	IdentityProviders interfaces.RecordStore[domain.IdentityProvider]
	Attendance        interfaces.RecordStore[domain.InstanceAttendance]
	AuthorizedUsers   interfaces.RecordStore[domain.InstanceAuthorizedUser]
	LocationBans      interfaces.RecordStore[domain.LocationBan]
	StaticResources   interfaces.RecordStore[domain.StaticResource]
}

func (r Records) mustBeComplete(file string) Records {
	helpers.NilPanic(r.Instances, file+": instance records are required")
	helpers.NilPanic(r.Locations, file+": location records are required")
	helpers.NilPanic(r.Channels, file+": channel records are required")
	helpers.NilPanic(r.Users, file+": user records are required")
	helpers.NilPanic(r.IdentityProviders, file+": identity provider records are required")
	helpers.NilPanic(r.Attendance, file+": attendance records are required")
	helpers.NilPanic(r.AuthorizedUsers, file+": authorized user records are required")
	helpers.NilPanic(r.LocationBans, file+": location ban records are required")
	helpers.NilPanic(r.StaticResources, file+": static resource records are required")
	return r
}

// recordError classifies a record-service failure: not-found stays entity_not_found, anything
// else becomes transient_record.
func recordError(message string, err error) error {
	if IsEntityNotFoundError(err) {
		return NewEntityNotFoundError(message, err)
	}
	return NewTransientRecordError(message, err)
}
