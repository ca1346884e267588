package commands

import (
	"errors"

	"github.com/robalyx/sentinel/internal/bot/constants"
	"github.com/robalyx/sentinel/internal/raidhelper"
)

const notConfiguredText = "❌ Raid-Helper API is not configured. Please set the raidhelper api_key and server_id."

func (h *Handler) events(r *Request) error {
	if !h.deps.RaidHelper.Configured() {
		r.Text(notConfiguredText)
		return nil
	}

	events, total, err := h.deps.RaidHelper.Events(r.Context())
	if err != nil {
		return err
	}

	r.Embeds(EventsEmbed(events, total))
	return nil
}

func (h *Handler) checkSignups(r *Request) error {
	if !h.deps.RaidHelper.Configured() {
		r.Text(notConfiguredText)
		return nil
	}

	eventID := r.optString(constants.EventIDOption)
	role, _ := r.data.OptRole(constants.RoleOption)

	event, err := h.deps.RaidHelper.Signups(r.Context(), eventID)
	if errors.Is(err, raidhelper.ErrEventNotFound) {
		r.Text(errorText("Event `%s` was not found. Please verify the event ID is correct.", eventID))
		return nil
	}
	if err != nil {
		return err
	}

	members, err := h.deps.Members.RoleMembers(r.Context(), r.GuildID, uint64(role.ID))
	if err != nil {
		return err
	}

	memberIDs := make([]uint64, 0, len(members))
	for _, member := range members {
		memberIDs = append(memberIDs, uint64(member.User.ID))
	}

	cmp := raidhelper.CompareSignups(memberIDs, event.SignedUpUserIDs())
	r.Embeds(SignupEmbed(event, uint64(role.ID), cmp))
	return nil
}
