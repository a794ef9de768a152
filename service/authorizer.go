package service

import (
	"context"
	"fmt"

	"myinstanceserver/domain"
)

// Authorizer decides whether a user may join an instance.
type Authorizer struct {
	records Records
}

// NewAuthorizer creates an Authorizer over the given record stores. Panics on a missing store.
func NewAuthorizer(records Records) *Authorizer {
	return &Authorizer{records: records.mustBeComplete("service.authorizer.go")}
}

// Authorize checks, in order: the user exists; the instance allow list (only enforced when the
// instance has one); for world instances the location exists, does not ban the user and has room;
// for media instances the channel exists.
//
// Returns:
// 1) nil when the user may join;
// 2) fatal_admission when the user is refused;
// 3) transient_record when a record lookup failed and nothing could be decided.
func (a *Authorizer) Authorize(ctx context.Context, instance domain.InstanceRecord, userID domain.UserID, headers domain.Headers) error {
	if _, err := a.records.Users.Get(ctx, string(userID), headers); err != nil {
		return a.refuseOrRetry(fmt.Sprintf("user %s", userID), err)
	}

	allowList, err := a.records.AuthorizedUsers.Find(ctx, domain.Query{"instanceId": instance.ID}, headers)
	if err != nil {
		return NewTransientRecordError("find instance authorized users", err)
	}
	if allowList.Total > 0 && !allowListContains(allowList.Data, userID) {
		return NewFatalAdmissionError(fmt.Sprintf("user %s is not authorized for instance %s", userID, instance.ID), nil)
	}

	if instance.LocationID != nil {
		if err := a.authorizeLocation(ctx, instance, *instance.LocationID, userID, headers); err != nil {
			return err
		}
	}
	if instance.ChannelID != nil {
		if _, err := a.records.Channels.Get(ctx, *instance.ChannelID, headers); err != nil {
			return a.refuseOrRetry(fmt.Sprintf("channel %s", *instance.ChannelID), err)
		}
	}
	return nil
}

func (a *Authorizer) authorizeLocation(ctx context.Context, instance domain.InstanceRecord, locationID string, userID domain.UserID, headers domain.Headers) error {
	location, err := a.records.Locations.Get(ctx, locationID, headers)
	if err != nil {
		return a.refuseOrRetry(fmt.Sprintf("location %s", locationID), err)
	}

	bans, err := a.records.LocationBans.Find(ctx, domain.Query{"userId": string(userID), "locationId": locationID}, headers)
	if err != nil {
		return NewTransientRecordError("find location bans", err)
	}
	if bans.Total > 0 {
		return NewFatalAdmissionError(fmt.Sprintf("user %s is banned from location %s", userID, locationID), nil)
	}

	if location.MaxUsersPerInstance > 0 && instance.CurrentUsers >= location.MaxUsersPerInstance {
		return NewFatalAdmissionError(fmt.Sprintf("instance %s is full (%d/%d)", instance.ID, instance.CurrentUsers, location.MaxUsersPerInstance), nil)
	}
	return nil
}

func (a *Authorizer) refuseOrRetry(what string, err error) error {
	if IsEntityNotFoundError(err) {
		return NewFatalAdmissionError(what+" does not exist", err)
	}
	return NewTransientRecordError("get "+what, err)
}

func allowListContains(list []domain.InstanceAuthorizedUser, userID domain.UserID) bool {
	for _, entry := range list {
		if entry.UserID == userID {
			return true
		}
	}
	return false
}
