package sshtunnel

import (
	"fmt"
	"io"
	"net"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"
)

// Endpoint is a [user@]host[:port] address.
type Endpoint struct {
	Host string
	Port int
	User string
}

func ParseEndpoint(s string) *Endpoint {
	endpoint := &Endpoint{
		Host: s,
	}
	if user, host, found := strings.Cut(endpoint.Host, "@"); found {
		endpoint.User = user
		endpoint.Host = host
	}
	if host, port, err := net.SplitHostPort(endpoint.Host); err == nil {
		endpoint.Host = host
		endpoint.Port, _ = strconv.Atoi(port)
	}
	return endpoint
}

func (endpoint *Endpoint) String() string {
	return net.JoinHostPort(endpoint.Host, strconv.Itoa(endpoint.Port))
}

// Tunnel exposes a remote rpc endpoint on a local port through a ssh server.
// All forwarded connections share one ssh session, which is re-established after it drops.
type Tunnel struct {
	Local  *Endpoint
	Server *Endpoint
	Remote *Endpoint

	config *ssh.ClientConfig
	logger logrus.FieldLogger

	mutex    sync.Mutex
	listener net.Listener
	client   *ssh.Client
}

// HostKeyCallback verifies server keys against a known_hosts file, or accepts any key if the path is empty.
func HostKeyCallback(knownHostsFile string) (ssh.HostKeyCallback, error) {
	if knownHostsFile == "" {
		return ssh.InsecureIgnoreHostKey(), nil
	}
	callback, err := knownhosts.New(knownHostsFile)
	if err != nil {
		return nil, fmt.Errorf("could not load known hosts: %w", err)
	}
	return callback, nil
}

func PrivateKeyFile(file string) (ssh.AuthMethod, error) {
	buffer, err := os.ReadFile(file)
	if err != nil {
		return nil, err
	}
	key, err := ssh.ParsePrivateKey(buffer)
	if err != nil {
		return nil, err
	}
	return ssh.PublicKeys(key), nil
}

func NewTunnel(server string, auth ssh.AuthMethod, hostKeyCallback ssh.HostKeyCallback, remote string, logger logrus.FieldLogger) *Tunnel {
	serverEndpoint := ParseEndpoint(server)
	if serverEndpoint.Port == 0 {
		serverEndpoint.Port = 22
	}

	return &Tunnel{
		// port 0 lets the os pick a free local port
		Local:  ParseEndpoint("localhost:0"),
		Server: serverEndpoint,
		Remote: ParseEndpoint(remote),
		config: &ssh.ClientConfig{
			User:            serverEndpoint.User,
			Auth:            []ssh.AuthMethod{auth},
			HostKeyCallback: hostKeyCallback,
		},
		logger: logger,
	}
}

// Start binds the local port and forwards accepted connections until Stop.
func (t *Tunnel) Start() error {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.listener != nil {
		return fmt.Errorf("tunnel already running")
	}

	listener, err := net.Listen("tcp", t.Local.String())
	if err != nil {
		return err
	}
	t.listener = listener
	t.Local.Port = listener.Addr().(*net.TCPAddr).Port

	go func() {
		for {
			conn, err := listener.Accept()
			if err != nil {
				t.logger.Debugf("tunnel listener closed: %v", err)
				return
			}
			go t.forward(conn)
		}
	}()

	t.logger.Infof("ssh tunnel %v -> %v via %v", t.Local, t.Remote, t.Server)
	return nil
}

func (t *Tunnel) Stop() {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.listener != nil {
		t.listener.Close()
		t.listener = nil
	}
	if t.client != nil {
		t.client.Close()
		t.client = nil
	}
}

// sshClient returns the shared session, dialing it on first use.
func (t *Tunnel) sshClient() (*ssh.Client, error) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.client != nil {
		return t.client, nil
	}

	client, err := ssh.Dial("tcp", t.Server.String(), t.config)
	if err != nil {
		return nil, err
	}
	t.client = client

	go func() {
		err := client.Wait()
		t.logger.Debugf("ssh session to %v ended: %v", t.Server, err)
		t.dropClient(client)
	}()

	return client, nil
}

func (t *Tunnel) dropClient(client *ssh.Client) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.client == client {
		t.client.Close()
		t.client = nil
	}
}

func (t *Tunnel) forward(localConn net.Conn) {
	client, err := t.sshClient()
	if err != nil {
		t.logger.Warnf("ssh dial to %v failed: %v", t.Server, err)
		localConn.Close()
		return
	}

	remoteConn, err := client.Dial("tcp", t.Remote.String())
	if err != nil {
		t.logger.Warnf("remote dial to %v failed: %v", t.Remote, err)
		localConn.Close()
		t.dropClient(client)
		return
	}

	var once sync.Once
	closeBoth := func() {
		localConn.Close()
		remoteConn.Close()
	}
	pipe := func(writer, reader net.Conn) {
		if _, err := io.Copy(writer, reader); err != nil {
			t.logger.Debugf("tunnel copy: %v", err)
		}
		once.Do(closeBoth)
	}
	go pipe(localConn, remoteConn)
	go pipe(remoteConn, localConn)
}
