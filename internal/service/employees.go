package service

import (
	"fmt"
	"sort"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/vbonduro/pharmaflow/internal/domain"
	"github.com/vbonduro/pharmaflow/internal/syncer"
)

// hashCost is a package variable so tests can lower it.
var hashCost = bcrypt.DefaultCost

// looksHashed reports whether p is already a bcrypt hash, as in records
// imported from another instance.
func looksHashed(p string) bool {
	if len(p) != 60 {
		return false
	}
	_, err := bcrypt.Cost([]byte(p))
	return err == nil
}

// redact strips the password before an employee leaves the service.
func redact(e domain.Employee) domain.Employee {
	e.Password = ""
	if e.Extra != nil {
		extra := make(map[string]string, len(e.Extra))
		for k, v := range e.Extra {
			extra[k] = v
		}
		e.Extra = extra
	}
	return e
}

func (s *Service) Employees() []domain.Employee {
	return s.SearchEmployees("")
}

func (s *Service) AddEmployee(name, password string, extra map[string]string) (domain.Employee, *syncer.Write, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.Employee{}, nil, fmt.Errorf("%w: employee name is required", ErrInvalid)
	}
	if password == "" {
		return domain.Employee{}, nil, fmt.Errorf("%w: password is required", ErrInvalid)
	}
	for k := range extra {
		switch k {
		case "id", "name", "password":
			return domain.Employee{}, nil, fmt.Errorf("%w: extra field %q is reserved", ErrInvalid, k)
		}
	}

	hash := password
	if !looksHashed(password) {
		b, err := bcrypt.GenerateFromPassword([]byte(password), hashCost)
		if err != nil {
			return domain.Employee{}, nil, fmt.Errorf("failed to hash password: %w", err)
		}
		hash = string(b)
	}

	emp, w, err := s.employees.Add(domain.Employee{Name: name, Password: hash, Extra: extra})
	if err != nil {
		return domain.Employee{}, nil, err
	}
	s.logger.Info("employee added", "employee_id", emp.ID)
	return redact(emp), w, nil
}

func (s *Service) DeleteEmployee(id string) (*syncer.Write, error) {
	return remove(s.employees, id)
}

// SearchEmployees matches q against the name, id and extra fields. The
// password is never matched and never returned.
func (s *Service) SearchEmployees(q string) []domain.Employee {
	q = strings.ToLower(strings.TrimSpace(q))
	out := []domain.Employee{}
	for _, e := range s.employees.Items() {
		if q != "" {
			fields := []string{e.ID, e.Name}
			keys := make([]string, 0, len(e.Extra))
			for k := range e.Extra {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				fields = append(fields, e.Extra[k])
			}
			if !containsFold(q, fields...) {
				continue
			}
		}
		out = append(out, redact(e))
	}
	return out
}

// CheckEmployeePassword reports whether password matches the stored hash.
func (s *Service) CheckEmployeePassword(id, password string) (bool, error) {
	e, ok := s.employees.Get(id)
	if !ok {
		return false, ErrNotFound
	}
	err := bcrypt.CompareHashAndPassword([]byte(e.Password), []byte(password))
	return err == nil, nil
}
