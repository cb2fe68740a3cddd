package memory

import (
	"context"

	domaincars "rentwheels/internal/domain/cars"
)

type unitCars struct {
	u *Unit
}

func (r unitCars) ByID(ctx context.Context, id domaincars.ID) (*domaincars.Car, error) {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	if idx, ok := r.u.cars[id]; ok {
		return r.u.carList[idx].item.Clone(), nil
	}
	r.u.store.mu.RLock()
	defer r.u.store.mu.RUnlock()
	car, ok := r.u.store.cars[id]
	if !ok {
		return nil, domaincars.ErrNotFound
	}
	return car.Clone(), nil
}

// Save stages car. The stored version must still match car.Version at commit.
func (r unitCars) Save(ctx context.Context, car *domaincars.Car) error {
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	if err := r.u.writable(); err != nil {
		return err
	}
	if idx, ok := r.u.cars[car.ID]; ok {
		entry := &r.u.carList[idx]
		if entry.item.Version != car.Version {
			return domaincars.ErrConcurrentUpdate
		}
		entry.item = car.Clone()
		return nil
	}
	r.u.store.mu.RLock()
	err := r.u.store.checkCarVersion(stagedCar{item: car, expected: car.Version})
	r.u.store.mu.RUnlock()
	if err != nil {
		return err
	}
	expected := car.Version
	car.Version++
	r.u.cars[car.ID] = len(r.u.carList)
	r.u.carList = append(r.u.carList, stagedCar{item: car.Clone(), expected: expected})
	return nil
}

func (r unitCars) Search(ctx context.Context, params domaincars.SearchParams) (domaincars.SearchResult, error) {
	params = params.Normalized()
	r.u.mu.Lock()
	defer r.u.mu.Unlock()
	r.u.store.mu.RLock()
	defer r.u.store.mu.RUnlock()

	matches := make([]*domaincars.Car, 0)
	for id, car := range r.u.store.cars {
		if _, staged := r.u.cars[id]; staged {
			continue
		}
		if params.Matches(car) {
			matches = append(matches, car.Clone())
		}
	}
	for _, entry := range r.u.carList {
		if params.Matches(entry.item) {
			matches = append(matches, entry.item.Clone())
		}
	}
	domaincars.SortCars(matches, params.Sort)

	total := len(matches)
	start := min(params.Offset, total)
	end := min(start+params.Limit, total)
	return domaincars.SearchResult{Items: matches[start:end], Total: total}, nil
}

var _ domaincars.Repository = unitCars{}
