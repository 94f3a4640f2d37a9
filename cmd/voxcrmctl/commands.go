package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"voxcrm/internal/cache"
	"voxcrm/internal/profile"
	"voxcrm/internal/remote"
	"voxcrm/internal/syncer"
)

// Draft generation runs two audio clips through the model, so it gets a much
// longer deadline than ordinary commands.
const draftTimeout = 3 * time.Minute

func (a *app) cmdSignup(args []string) {
	if len(args) < 2 {
		fatal("usage: voxcrmctl signup <username> <email>")
	}
	password := promptPassword("password")
	ctx, cancel := a.ctx()
	defer cancel()

	user, err := a.client.Signup(ctx, args[0], args[1], password)
	if err != nil {
		fatal("signup: %v", err)
	}
	if a.jsonOut {
		outputJSON(user)
		return
	}
	fmt.Printf("Account created: %s <%s>\n", user.Username, user.Email)
	fmt.Println("Log in with: voxcrmctl login", user.Username)
}

func (a *app) cmdLogin(args []string) {
	if len(args) < 1 {
		fatal("usage: voxcrmctl login <username>")
	}
	password := promptPassword("password")
	ctx, cancel := a.ctx()
	defer cancel()

	creds, err := a.client.Login(ctx, args[0], password)
	if err != nil {
		fatal("login: %v", err)
	}
	if err := remote.SaveCredentials(profile.CredentialsPath(a.profileName), creds); err != nil {
		fatal("save credentials: %v", err)
	}
	a.creds = creds
	fmt.Printf("Logged in as %s (profile %s)\n", args[0], a.profileName)
}

func (a *app) cmdLogout() {
	a.requireAuth()
	ctx, cancel := a.ctx()
	defer cancel()

	if err := a.client.Logout(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "warning: server logout failed: %v\n", err)
	}
	if err := os.Remove(profile.CredentialsPath(a.profileName)); err != nil && !os.IsNotExist(err) {
		fatal("remove credentials: %v", err)
	}
	if snap, err := cache.Open(profile.CacheDBPath(a.profileName)); err == nil {
		_ = snap.Clear(a.creds.UserID)
		_ = snap.Close()
	}
	fmt.Println("Logged out")
}

func (a *app) cmdWhoami() {
	a.requireAuth()
	ctx, cancel := a.ctx()
	defer cancel()

	user, err := a.client.Me(ctx)
	if err != nil {
		fatal("%v", err)
	}
	if a.jsonOut {
		outputJSON(user)
		return
	}
	fmt.Printf("%s <%s>\n", user.Username, user.Email)
}

func (a *app) cmdContactsList() {
	ctx, cancel := a.ctx()
	defer cancel()
	s := a.session(ctx)
	defer a.saveSnapshot()

	contacts := s.Store().All()
	if a.jsonOut {
		outputJSON(contacts)
		return
	}
	if len(contacts) == 0 {
		fmt.Println("No contacts.")
		return
	}
	for _, c := range contacts {
		fmt.Println(formatContact(c))
	}
}

func (a *app) cmdContactsAdd(args []string) {
	if len(args) < 1 {
		fatal("usage: voxcrmctl contacts add <name> [email]")
	}
	email := ""
	if len(args) > 1 {
		email = args[1]
	}
	ctx, cancel := a.ctx()
	defer cancel()
	s := a.session(ctx)
	defer a.saveSnapshot()

	contact, err := a.client.CreateContact(ctx, args[0], email)
	if err != nil {
		fatal("add contact: %v", err)
	}
	if err := s.Refresh(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "warning: refresh after create failed: %v\n", err)
	}
	if a.jsonOut {
		outputJSON(contact)
		return
	}
	fmt.Printf("Added %s (%s)\n", contact.Name, contact.ID)
}

func (a *app) cmdOpen(args []string) {
	if len(args) < 1 {
		fatal("usage: voxcrmctl open <contact-id>")
	}
	ctx, cancel := a.ctx()
	defer cancel()
	s := a.session(ctx)

	if err := s.MarkAccessed(args[0]); err != nil {
		fatal("%v", err)
	}
	s.Wait()
	a.saveSnapshot()

	contact := s.Store().Get(args[0])
	if contact == nil {
		fatal("contact disappeared after sync: %s", args[0])
	}
	if a.jsonOut {
		outputJSON(contact)
		return
	}
	fmt.Println(formatContact(*contact))
}

func (a *app) cmdFav(args []string) {
	if len(args) < 1 {
		fatal("usage: voxcrmctl fav <contact-id>")
	}
	ctx, cancel := a.ctx()
	defer cancel()
	s := a.session(ctx)

	if err := s.ToggleFavorite(args[0]); err != nil {
		fatal("%v", err)
	}
	s.Wait()
	a.saveSnapshot()

	contact := s.Store().Get(args[0])
	if contact == nil {
		fatal("contact disappeared after sync: %s", args[0])
	}
	if a.jsonOut {
		outputJSON(contact)
		return
	}
	state := "unfavorited"
	if contact.IsFavorite {
		state = "favorited"
	}
	fmt.Printf("%s %s (%d favorites)\n", contact.Name, state, s.Store().FavoriteCount())
}

func (a *app) cmdRecents() {
	ctx, cancel := a.ctx()
	defer cancel()
	s := a.session(ctx)
	defer a.saveSnapshot()

	recents := s.Store().Recents()
	if a.jsonOut {
		outputJSON(recents)
		return
	}
	if len(recents) == 0 {
		fmt.Println("No recently viewed contacts.")
		return
	}
	for i, c := range recents {
		fmt.Printf("%2d. %s\n", i+1, formatContact(c))
	}
}

func (a *app) cmdFavorites() {
	ctx, cancel := a.ctx()
	defer cancel()
	s := a.session(ctx)
	defer a.saveSnapshot()

	favorites := s.Store().Favorites()
	if a.jsonOut {
		outputJSON(favorites)
		return
	}
	fmt.Printf("Favorites (%d):\n", len(favorites))
	for _, c := range favorites {
		fmt.Println("  " + formatContact(c))
	}
}

func (a *app) cmdClear(args []string) {
	if len(args) < 1 {
		fatal("usage: voxcrmctl clear <recents|favorites>")
	}
	ctx, cancel := a.ctx()
	defer cancel()
	s := a.session(ctx)

	switch args[0] {
	case "recents":
		s.ClearRecents()
	case "favorites":
		s.ClearFavorites()
	default:
		fatal("unknown collection: %s", args[0])
	}
	s.Wait()
	a.saveSnapshot()
	fmt.Printf("Cleared %s\n", args[0])
}

func (a *app) cmdRefresh() {
	ctx, cancel := a.ctx()
	defer cancel()
	s := a.session(ctx)

	if err := a.refresh(ctx); err != nil {
		fatal("refresh: %v", err)
	}
	a.saveSnapshot()
	fmt.Printf("Synced %d contacts\n", s.Store().Len())
}

func (a *app) cmdStatus() {
	ctx, cancel := a.ctx()
	defer cancel()
	s := a.session(ctx)
	defer a.saveSnapshot()

	if a.jsonOut {
		outputJSON(map[string]interface{}{
			"profile":       a.profileName,
			"state":         a.machine.Current(),
			"needs_refresh": s.NeedsRefresh(),
			"contacts":      s.Store().Len(),
			"favorites":     s.Store().FavoriteCount(),
		})
		return
	}
	fmt.Printf("Profile:  %s\n", a.profileName)
	fmt.Printf("State:    %s\n", a.machine.Current())
	fmt.Printf("Contacts: %d (%d favorites)\n", s.Store().Len(), s.Store().FavoriteCount())
	if s.NeedsRefresh() {
		fmt.Println("A refresh is pending: local state may be ahead of the server.")
	}
}

func (a *app) cmdDraft(args []string) {
	if len(args) < 3 {
		fatal("usage: voxcrmctl draft <contact-id> <relationship-audio> <content-audio>")
	}
	a.requireAuth()
	ctx, cancel := context.WithTimeout(context.Background(), draftTimeout)
	defer cancel()

	fmt.Fprintln(os.Stderr, "Generating draft, this can take a minute...")
	d, err := a.client.GenerateDraft(ctx, args[0], args[1], args[2])
	if err != nil {
		fatal("generate draft: %v", err)
	}
	if a.jsonOut {
		outputJSON(d)
		return
	}
	fmt.Println(d.Body)
	fmt.Printf("\nDraft %s - approve with: voxcrmctl approve %s\n", d.ID, d.ID)
}

func (a *app) cmdApprove(args []string) {
	if len(args) < 1 {
		fatal("usage: voxcrmctl approve <draft-id>")
	}
	a.requireAuth()
	ctx, cancel := a.ctx()
	defer cancel()

	if err := a.client.ApproveDraft(ctx, args[0]); err != nil {
		fatal("approve: %v", err)
	}
	fmt.Println("Draft approved and stored")
}

func (a *app) cmdEmails() {
	a.requireAuth()
	ctx, cancel := a.ctx()
	defer cancel()

	emails, err := a.client.ListApprovedEmails(ctx)
	if err != nil {
		fatal("%v", err)
	}
	if a.jsonOut {
		outputJSON(emails)
		return
	}
	if len(emails) == 0 {
		fmt.Println("No approved emails.")
		return
	}
	for _, e := range emails {
		fmt.Printf("%s  contact=%s  %s\n", e.CreatedAt.Format(time.RFC3339), e.ContactID, e.ID)
	}
}

func formatContact(c syncer.Contact) string {
	star := " "
	if c.IsFavorite {
		star = "*"
	}
	line := fmt.Sprintf("%s %s  %s", star, c.ID, c.Name)
	if c.Email != "" {
		line += "  <" + c.Email + ">"
	}
	if c.LastAccessedAt != nil {
		line += "  viewed " + c.LastAccessedAt.Format("2006-01-02 15:04")
	}
	return line
}
