// Package sshutil dials remote hosts by their SSH config alias and runs
// commands on them. Connection settings (HostName, Port, User, IdentityFile)
// are resolved from the SSH config file the caller points it at, so aliases
// behave the same way they do for the plain ssh client.
package sshutil

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/kevinburke/ssh_config"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"

	"gpuwatch/internal/errors"
)

// Client wraps an SSH connection with the alias it was dialed under.
type Client struct {
	*ssh.Client
	Alias   string // alias used to connect
	Address string // resolved host:port
}

// StrictHostKeyChecking controls host key verification behavior.
// When true (default), host keys are verified against ~/.ssh/known_hosts.
// When false, verification is skipped (for CI/automation).
var StrictHostKeyChecking = true

// Dial establishes an SSH connection to the host identified by alias.
// Settings are resolved from the SSH config file at configPath; an empty
// configPath falls back to ~/.ssh/config. The alias may also be a plain
// hostname, user@host, or host:port.
func Dial(alias string, timeout time.Duration, configPath string) (*Client, error) {
	settings := resolveSettings(alias, configPath)

	clientConfig, err := buildClientConfig(settings)
	if err != nil {
		var gwErr *errors.Error
		if stderrors.As(err, &gwErr) {
			return nil, err
		}
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Couldn't set up SSH for '%s'", alias),
			"Check your keys are loaded: ssh-add -l")
	}
	clientConfig.Timeout = timeout

	address := settings.address()
	conn, err := net.DialTimeout("tcp", address, timeout)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("Can't reach '%s' at %s", alias, address),
			suggestionForDialError(err))
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, address, clientConfig)
	if err != nil {
		conn.Close()
		return nil, errors.WrapWithCode(err, errors.ErrSSH,
			fmt.Sprintf("SSH handshake with '%s' didn't go through", alias),
			suggestionForHandshakeError(err))
	}

	return &Client{
		Client:  ssh.NewClient(sshConn, chans, reqs),
		Alias:   alias,
		Address: address,
	}, nil
}

// Close closes the SSH connection.
func (c *Client) Close() error {
	if c.Client == nil {
		return nil
	}
	return c.Client.Close()
}

// settings holds resolved SSH connection parameters.
type settings struct {
	hostname     string
	port         string
	user         string
	identityFile string
}

func (s *settings) address() string {
	return net.JoinHostPort(s.hostname, s.port)
}

// resolveSettings parses the alias string and resolves connection settings
// from the SSH config file at configPath.
func resolveSettings(alias, configPath string) *settings {
	s := &settings{
		port: "22",
		user: currentUser(),
	}

	host := alias
	if atIdx := strings.Index(host, "@"); atIdx != -1 {
		s.user = host[:atIdx]
		host = host[atIdx+1:]
	}

	if colonIdx := strings.LastIndex(host, ":"); colonIdx != -1 {
		potentialPort := host[colonIdx+1:]
		if potentialPort != "" && strings.IndexFunc(potentialPort, func(r rune) bool {
			return r < '0' || r > '9'
		}) == -1 {
			s.port = potentialPort
			host = host[:colonIdx]
		}
	}

	s.hostname = host

	cfg, err := loadConfigFile(configPath)
	if err != nil {
		// No config file is fine, connect with what we have.
		return s
	}

	if hostname, _ := cfg.Get(host, "HostName"); hostname != "" {
		s.hostname = hostname
	}
	if port, _ := cfg.Get(host, "Port"); port != "" {
		s.port = port
	}
	if user, _ := cfg.Get(host, "User"); user != "" {
		s.user = user
	}
	if identity, _ := cfg.Get(host, "IdentityFile"); identity != "" {
		s.identityFile = expandPath(identity)
	}

	return s
}

// loadConfigFile reads and decodes an SSH config file. Match blocks are not
// supported by the decoder, so content from the first Match directive on is
// dropped before parsing.
func loadConfigFile(configPath string) (*ssh_config.Config, error) {
	if configPath == "" {
		configPath = filepath.Join(homeDir(), ".ssh", "config")
	}
	configPath = expandPath(configPath)

	content, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	return ssh_config.Decode(bytes.NewReader(stripMatchBlocks(content)))
}

// stripMatchBlocks returns config content up to the first Match directive.
func stripMatchBlocks(content []byte) []byte {
	lines := strings.Split(string(content), "\n")
	for i, line := range lines {
		trimmed := strings.ToLower(strings.TrimSpace(line))
		if strings.HasPrefix(trimmed, "match ") {
			return []byte(strings.Join(lines[:i], "\n"))
		}
	}
	return content
}

// buildClientConfig creates an SSH client config with authentication methods.
func buildClientConfig(s *settings) (*ssh.ClientConfig, error) {
	var authMethods []ssh.AuthMethod

	if agentAuth := sshAgentAuth(); agentAuth != nil {
		authMethods = append(authMethods, agentAuth)
	}

	tried := map[string]bool{}
	tryKeyFile := func(keyPath string) {
		if keyPath == "" || tried[keyPath] {
			return
		}
		tried[keyPath] = true
		auth, err := keyFileAuth(keyPath)
		if err != nil {
			// Missing or unreadable keys are skipped silently.
			return
		}
		authMethods = append(authMethods, auth)
	}

	tryKeyFile(s.identityFile)
	tryKeyFile(filepath.Join(homeDir(), ".ssh", "id_ed25519"))
	tryKeyFile(filepath.Join(homeDir(), ".ssh", "id_rsa"))
	tryKeyFile(filepath.Join(homeDir(), ".ssh", "id_ecdsa"))

	if len(authMethods) == 0 {
		return nil, errors.New(errors.ErrSSH,
			"No SSH auth methods available",
			"Check your keys are loaded: ssh-add -l")
	}

	var hostKeyCallback ssh.HostKeyCallback
	if StrictHostKeyChecking {
		var err error
		hostKeyCallback, err = knownHostsCallback(filepath.Join(homeDir(), ".ssh", "known_hosts"))
		if err != nil {
			return nil, fmt.Errorf("failed to load known_hosts: %w", err)
		}
	} else {
		hostKeyCallback = ssh.InsecureIgnoreHostKey() //nolint:gosec // User explicitly disabled host key checking
	}

	return &ssh.ClientConfig{
		User:            s.user,
		Auth:            authMethods,
		HostKeyCallback: hostKeyCallback,
	}, nil
}

// agentConn holds the reusable SSH agent connection.
var (
	agentConn     net.Conn
	agentClient   agent.ExtendedAgent
	agentConnOnce sync.Once
)

// sshAgentAuth returns an auth method using the SSH agent if available.
// The agent connection is reused across connections. Returns nil if the
// agent has no keys loaded.
func sshAgentAuth() ssh.AuthMethod {
	socket := os.Getenv("SSH_AUTH_SOCK")
	if socket == "" {
		return nil
	}

	agentConnOnce.Do(func() {
		conn, err := net.Dial("unix", socket)
		if err != nil {
			return
		}
		agentConn = conn
		agentClient = agent.NewClient(conn)
	})

	if agentClient == nil {
		return nil
	}

	// An empty agent causes auth failures when placed before other methods.
	signers, err := agentClient.Signers()
	if err != nil || len(signers) == 0 {
		return nil
	}

	return ssh.PublicKeysCallback(agentClient.Signers)
}

// CloseAgent closes the SSH agent connection if one is open.
// Call on process shutdown.
func CloseAgent() {
	if agentConn != nil {
		agentConn.Close()
	}
}

// keyFileAuth returns an auth method using a private key file.
func keyFileAuth(keyPath string) (ssh.AuthMethod, error) {
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, err
	}

	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, err
	}

	return ssh.PublicKeys(signer), nil
}

// knownHostsCallback builds a host key callback, creating an empty
// known_hosts file if none exists yet.
func knownHostsCallback(knownHostsPath string) (ssh.HostKeyCallback, error) {
	if _, err := os.Stat(knownHostsPath); os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(knownHostsPath), 0700); err != nil {
			return nil, fmt.Errorf("failed to create .ssh directory: %w", err)
		}
		if err := os.WriteFile(knownHostsPath, []byte{}, 0600); err != nil {
			return nil, fmt.Errorf("failed to create known_hosts: %w", err)
		}
	}

	return knownhosts.New(knownHostsPath)
}

func homeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return os.Getenv("HOME")
	}
	return home
}

func currentUser() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	return "root"
}

func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(homeDir(), path[2:])
	}
	return path
}

func suggestionForDialError(err error) string {
	errStr := err.Error()
	if strings.Contains(errStr, "connection refused") {
		return "Is SSH running on that box? Try: ssh <host>"
	}
	if strings.Contains(errStr, "no route to host") || strings.Contains(errStr, "network is unreachable") {
		return "Can't route to the host. Check your network connection."
	}
	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "i/o timeout") {
		return "Connection timed out. Host might be offline or blocked by a firewall."
	}
	return "Make sure the host is reachable: ping <host>"
}

func suggestionForHandshakeError(err error) string {
	errStr := err.Error()
	if strings.Contains(errStr, "unable to authenticate") || strings.Contains(errStr, "no supported methods") {
		return "Auth failed. Check your keys are loaded: ssh-add -l"
	}
	if strings.Contains(errStr, "host key") {
		return "Host key issue. Try connecting manually first: ssh <host>"
	}
	return "Something went wrong during SSH setup. Try: ssh <host>"
}
