package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"voxcrm/internal/bus"
	"voxcrm/internal/cache"
	"voxcrm/internal/lock"
	"voxcrm/internal/logging"
	"voxcrm/internal/profile"
	"voxcrm/internal/remote"
	"voxcrm/internal/status"
	"voxcrm/internal/syncer"
)

const commandTimeout = 10 * time.Second

// app wires the per-profile state every command works against.
type app struct {
	profileName string
	jsonOut     bool

	logger  *zap.Logger
	lk      *lock.Lock
	client  *remote.Client
	creds   *remote.Credentials
	snap    *cache.Cache
	machine *status.Machine
	sync    *syncer.Synchronizer
}

func openApp(profileName, serverURL string, jsonOut bool) (*app, error) {
	if err := profile.EnsureDir(profileName); err != nil {
		return nil, err
	}
	logger, err := logging.New(profile.LogPath(profileName), "voxcrmctl")
	if err != nil {
		return nil, err
	}
	lk, err := lock.Acquire(profile.Dir(profileName))
	if err != nil {
		return nil, err
	}

	a := &app{
		profileName: profileName,
		jsonOut:     jsonOut,
		logger:      logger,
		lk:          lk,
		client:      remote.New(serverURL),
	}
	creds, err := remote.LoadCredentials(profile.CredentialsPath(profileName))
	if err != nil {
		a.close()
		return nil, err
	}
	if creds != nil {
		a.creds = creds
		a.client.SetToken(creds.AccessToken)
	}
	return a, nil
}

func (a *app) close() {
	if a.snap != nil {
		_ = a.snap.Close()
	}
	if a.lk != nil {
		_ = a.lk.Release()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

func (a *app) requireAuth() {
	if a.creds == nil {
		fatal("not logged in, run: voxcrmctl login <username>")
	}
}

// session builds the synchronizer on top of the cached snapshot, then merges
// in server state. A failed fetch leaves the cached view in place.
func (a *app) session(ctx context.Context) *syncer.Synchronizer {
	a.requireAuth()
	if a.sync != nil {
		return a.sync
	}

	snap, err := cache.Open(profile.CacheDBPath(a.profileName))
	if err != nil {
		fatal("open snapshot cache: %v", err)
	}
	a.snap = snap

	st := syncer.NewStore()
	if cached, err := snap.Load(a.creds.UserID); err == nil && cached != nil {
		st.Replace(cached)
	}

	b := bus.New()
	a.machine = status.NewMachine(b)
	_ = a.machine.Transition(status.SigningIn)
	_ = a.machine.Transition(status.Refreshing)

	a.sync = syncer.New(st, a.client, b, a.logger, syncer.WithStatusMachine(a.machine))

	if err := a.refresh(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "warning: server unreachable, using cached data (%v)\n", err)
	}
	return a.sync
}

// refresh pulls server state, retrying once through the refresh token when
// the access token has expired.
func (a *app) refresh(ctx context.Context) error {
	err := a.sync.Refresh(ctx)
	if !errors.Is(err, remote.ErrUnauthorized) {
		return err
	}

	creds, rerr := a.client.RefreshToken(ctx, a.creds.RefreshToken)
	if rerr != nil {
		return fmt.Errorf("session expired, log in again: %w", rerr)
	}
	a.creds = creds
	if serr := remote.SaveCredentials(profile.CredentialsPath(a.profileName), creds); serr != nil {
		a.logger.Warn("persisting refreshed credentials failed", zap.Error(serr))
	}
	return a.sync.Refresh(ctx)
}

// saveSnapshot persists the current local view for the next invocation.
func (a *app) saveSnapshot() {
	if a.snap == nil || a.sync == nil {
		return
	}
	if err := a.snap.Save(a.creds.UserID, a.sync.Store().All()); err != nil {
		a.logger.Warn("saving snapshot failed", zap.Error(err))
	}
}

func (a *app) ctx() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), commandTimeout)
}

func promptPassword(label string) string {
	fmt.Fprintf(os.Stderr, "%s: ", label)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		fatal("read password: %v", err)
	}
	return strings.TrimRight(line, "\r\n")
}
