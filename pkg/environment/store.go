package environment

import (
	"context"
	"errors"

	pkgerrors "github.com/pkg/errors"
	meta_v1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"

	"github.com/kooba/ditc-deployer/pkg/config"
	ditcerr "github.com/kooba/ditc-deployer/pkg/errors"
)

// ErrNoEnvironments is returned when the store holds no environment
// descriptors at all, which means the cluster is misconfigured.
var ErrNoEnvironments = &ditcerr.Error{
	Type: ditcerr.Missing,
	Err:  errors.New("no environment configmaps found"),
	Help: `No environment configmaps found

No ConfigMaps carrying the preview environment label were found in the
deployer's namespace. Each preview environment needs a ConfigMap, e.g.,

    kubectl -n brigade create configmap staging-environment \
      --from-literal=environment='gateway: {tag: v1.2.3}'
    kubectl -n brigade label configmap staging-environment \
      type=preview-environment-config environmentName=staging
`,
}

// Lister is the read side of the config store.
type Lister interface {
	List(ctx context.Context) ([]Descriptor, error)
}

// Store reads environment descriptors out of ConfigMaps.
type Store struct {
	client    kubernetes.Interface
	namespace string
	selector  string
	nameLabel string
	dataKey   string
}

var _ Lister = &Store{}

func NewStore(client kubernetes.Interface, cfg config.Config) *Store {
	return &Store{
		client:    client,
		namespace: cfg.Namespace,
		selector:  cfg.LabelSelector,
		nameLabel: cfg.EnvironmentLabel,
		dataKey:   cfg.EnvironmentDataKey,
	}
}

// List returns every descriptor in the namespace, in the order the
// API server gives them.
func (s *Store) List(ctx context.Context) ([]Descriptor, error) {
	configMaps, err := s.client.CoreV1().ConfigMaps(s.namespace).List(meta_v1.ListOptions{
		LabelSelector: s.selector,
	})
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "listing configmaps in namespace %q with selector %q", s.namespace, s.selector)
	}
	if len(configMaps.Items) == 0 {
		return nil, ErrNoEnvironments
	}

	descriptors := make([]Descriptor, 0, len(configMaps.Items))
	for _, cm := range configMaps.Items {
		descriptors = append(descriptors, Descriptor{
			ConfigMap:       cm.Name,
			EnvironmentName: cm.Labels[s.nameLabel],
			Document:        cm.Data[s.dataKey],
		})
	}
	return descriptors, nil
}
