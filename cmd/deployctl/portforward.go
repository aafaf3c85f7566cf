package main

import (
	"fmt"

	"github.com/justinbarrick/go-k8s-portforward"
	"github.com/pkg/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

const deployerdPort = 3030

// portforwardURL forwards a local port to the deployerd pod matching
// the labels, and returns the URL of the forwarded port.
func portforwardURL(ns, labels string) (string, error) {
	selector, err := metav1.ParseToLabelSelector(labels)
	if err != nil {
		return "", errors.Wrapf(err, "parsing --k8s-fwd-labels %q", labels)
	}
	p, err := portforward.NewPortForwarder(ns, *selector, deployerdPort)
	if err != nil {
		return "", errors.Wrap(err, "initializing port forward")
	}
	if err := p.Start(); err != nil {
		return "", errors.Wrapf(err, "forwarding to deployerd in namespace %s (labels %s)", ns, labels)
	}
	return fmt.Sprintf("http://127.0.0.1:%d", p.ListenPort), nil
}
